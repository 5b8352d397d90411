// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package e2e runs end-to-end scenarios of the client, the retry loop
// and the poll loop against an in-process fake API.
package e2e
