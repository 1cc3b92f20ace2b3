package lending

import (
	"time"

	"github.com/google/uuid"
)

// User is the borrower identity as seen by the lending core. Credential
// handling and token issuance live in the access gate outside this module;
// the core only reads the identity and the active flag for ownership and
// eligibility checks.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	Active    bool
	CreatedAt time.Time
}
