// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package migrations

import "embed"

// FS contains the event journal schema.
//
//go:embed *.sql
var FS embed.FS
