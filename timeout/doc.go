// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout chooses the deadline for each individual attempt
// made while a client executes a plan. The plan context (and, when
// polling, the poll deadline) still bounds the execution as a whole;
// an attempt deadline is never later than that.
package timeout
