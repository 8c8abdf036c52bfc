// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package walk enumerates files under a directory tree.
//
// Enumeration is lazy: Walk returns an iterator and the tree is only read
// while the caller ranges over it. Directories are checked against an
// ordered set of exclusion rules before they are entered, so an excluded
// subtree costs a single name comparison regardless of its size.
//
// # Usage
//
//	rules := walk.Compose(walk.HiddenDirs, walk.DependencyCacheDirs)
//	for path, err := range walk.Walk(root, walk.Extensions(".sh"), rules) {
//	    if err != nil {
//	        return err // root is missing or not a directory
//	    }
//	    fmt.Println(path)
//	}
//
// Ordering of yielded paths is not part of the contract.
package walk
