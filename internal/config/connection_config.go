package config

import "time"

func (c mainConfig) GetURL() string {
	return c.lookup(urlEnvVar, "")
}

func (c mainConfig) GetUsername() string {
	return c.lookup(usernameEnvVar, "")
}

func (c mainConfig) GetAccessKey() string {
	return c.lookup(accessKeyEnvVar, "")
}

// GetPersistConnection reports whether sessions are kept open between operations.
func (c mainConfig) GetPersistConnection() bool {
	b, _ := c.lookupBool(persistEnvVar, false)
	return b
}

func (c mainConfig) GetInsecureTLS() bool {
	b, _ := c.lookupBool(insecureTLSEnvVar, false)
	return b
}

func (c mainConfig) GetHTTPTimeout() time.Duration {
	d, _ := c.lookupDuration(httpTimeoutEnvVar, defaultHTTPTimeout)
	return d
}

func (c mainConfig) GetMaxRetries() int {
	n, _ := c.lookupInt(maxRetriesEnvVar, defaultMaxRetries)
	return n
}

func (c mainConfig) GetRetryDelay() time.Duration {
	d, _ := c.lookupDuration(retryDelayEnvVar, defaultRetryDelay)
	return d
}

func (c mainConfig) GetOperationRetries() int {
	n, _ := c.lookupInt(operationRetriesEnvVar, defaultOperationRetries)
	return n
}
