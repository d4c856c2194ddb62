// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package archive builds and extracts package archives in tar+gzip
// form. Archives are reproducible: entries are sorted, timestamps are
// normalized, and gzip headers are pinned, so the same file set always
// yields the same bytes and therefore the same checksum. Extraction is
// hardened against path traversal, link entries, and decompression
// bombs.
package archive
