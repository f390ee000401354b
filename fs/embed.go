// Package appfs exposes the files embedded into the binaries: SQL migrations, email templates
// and the common passwords list used by the password policy.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS
