package layout

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTenantID is wrapped by ValidateTenantID failures.
var ErrInvalidTenantID = errors.New("invalid tenant id")

var tenantRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateTenantID checks that id is safe to use as a directory name.
func ValidateTenantID(id string) error {
	if !tenantRegexp.MatchString(id) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidTenantID, id, tenantRegexp)
	}
	return nil
}
