package appfs

import "embed"

// FS holds the SQL migrations, email and report templates shipped with the binaries.
//
//go:embed migrations/*.sql templates/email/* templates/report/*
var FS embed.FS
