// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lint runs external linters over a directory tree and counts what
// they report.
//
// Linters are treated as opaque commands. Their combined output is kept as
// text and each line is classified by simple markers into warnings and
// errors; nothing is parsed into typed diagnostics.
//
// # Categories
//
//	| Category | Files                          | Linter     | Mode     |
//	|----------|--------------------------------|------------|----------|
//	| python   | *.py                           | pylint     | per file |
//	| shell    | *.sh, *.bash                   | shellcheck | batched  |
//	| web      | *.js *.jsx *.ts *.tsx *.mjs ... | eslint     | batched  |
//
// # Availability
//
// Installed linters are probed once per run with Probe and the resulting
// Capabilities are handed to the Scanner. A category whose linter is
// missing is skipped with an informational log line and contributes
// nothing to the run totals.
//
// # Failure Model
//
//	| Condition                         | Effect                               |
//	|-----------------------------------|--------------------------------------|
//	| linter missing                    | category skipped, not an error        |
//	| linter exits non-zero             | output kept and counted               |
//	| linter cannot be started          | LaunchError, counted as one error     |
//	| linter reports warnings / errors  | counted from its output               |
//
// # Thread Safety
//
// Scanner and Runner are safe for concurrent use.
package lint
