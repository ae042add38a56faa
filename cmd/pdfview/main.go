// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command pdfview runs the document server and renders pages from the
// command line.
package main

func main() {
	exitOnError(Execute())
}
