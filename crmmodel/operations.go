package crmmodel

// OperationType is the value of the "operation" parameter sent to the webservice endpoint.
type OperationType string

const (
	// OperationGetChallenge requests a short lived challenge token for a user.
	// Method: GET
	// Parameters: operation, username
	OperationGetChallenge OperationType = "getchallenge"

	// OperationLogin exchanges a derived access key for a session.
	// Method: POST
	// Parameters: operation, username, accessKey (md5 of token + access key)
	OperationLogin OperationType = "login"

	// OperationLogout closes a session on the server.
	// Method: GET
	// Parameters: operation, sessionName
	OperationLogout OperationType = "logout"

	// OperationQuery runs a query against the CRM.
	// Method: GET
	// Parameters: operation, sessionName, query
	OperationQuery OperationType = "query"

	// OperationRetrieve fetches a single record.
	// Method: GET
	// Parameters: operation, sessionName, id ({moduleCode}x{itemId})
	OperationRetrieve OperationType = "retrieve"

	// OperationCreate inserts a record of the given element type.
	// Method: POST
	// Parameters: operation, sessionName, element (JSON), elementType
	OperationCreate OperationType = "create"

	// OperationUpdate replaces a record with the posted element.
	// Method: POST
	// Parameters: operation, sessionName, element (JSON)
	OperationUpdate OperationType = "update"

	// OperationDelete removes a single record.
	// Method: GET
	// Parameters: operation, sessionName, id
	OperationDelete OperationType = "delete"

	// OperationDescribe lists the fields available on an element type.
	// Method: GET
	// Parameters: operation, sessionName, elementType
	OperationDescribe OperationType = "describe"
)

func (o OperationType) String() string {
	return string(o)
}

// Request parameter names.
const (
	ParamOperation   = "operation"
	ParamUsername    = "username"
	ParamAccessKey   = "accessKey"
	ParamSessionName = "sessionName"
	ParamQuery       = "query"
	ParamID          = "id"
	ParamElement     = "element"
	ParamElementType = "elementType"
)

// Error codes returned by the server that invalidate the cached session.
const (
	ErrorCodeInvalidUserCredentials = "INVALID_USER_CREDENTIALS"
	ErrorCodeInvalidSessionID       = "INVALID_SESSIONID"
)

// IsAuthErrorCode reports whether the code means the cached token or session
// is no longer accepted and a fresh handshake is required.
func IsAuthErrorCode(code string) bool {
	return code == ErrorCodeInvalidUserCredentials || code == ErrorCodeInvalidSessionID
}
