package crmmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordID is a webservice record id of the form {moduleCode}x{itemId}, e.g. "4x12".
type RecordID struct {
	ModuleCode int
	ItemID     int
}

func (id RecordID) String() string {
	return fmt.Sprintf("%dx%d", id.ModuleCode, id.ItemID)
}

// ParseID parses a record id.
func ParseID(s string) (RecordID, error) {
	module, item, ok := strings.Cut(s, "x")
	if !ok {
		return RecordID{}, fmt.Errorf("%w: %q missing 'x' separator", ErrInvalidID, s)
	}
	moduleCode, err := strconv.Atoi(module)
	if err != nil || moduleCode <= 0 || !digitsOnly(module) {
		return RecordID{}, fmt.Errorf("%w: %q has a bad module code", ErrInvalidID, s)
	}
	itemID, err := strconv.Atoi(item)
	if err != nil || itemID <= 0 || !digitsOnly(item) {
		return RecordID{}, fmt.Errorf("%w: %q has a bad item id", ErrInvalidID, s)
	}
	return RecordID{ModuleCode: moduleCode, ItemID: itemID}, nil
}

// ValidateID checks that s is a well formed record id.
func ValidateID(s string) error {
	_, err := ParseID(s)
	return err
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
