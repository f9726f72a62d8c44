// Copyright 2013 Google, Inc.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package term provides the terminal I/O adapter the line editor redraws
// through: raw-mode switching, window-size queries, TTY detection, cell
// width measurement, and the ANSI escape vocabulary for cursor movement,
// erasing, scrolling, and foreground color.
//
// Adapter
//
// Adapter wraps a pair of descriptors (typically os.Stdin/os.Stdout) and
// owns everything that depends on them being a real terminal:
//
//   adapter := term.NewAdapter(os.Stdin, os.Stdout)
//   if adapter.IsTTY() {
//       if err := adapter.MakeRaw(); err != nil {
//           log.Fatal(err)
//       }
//       defer adapter.Restore()
//   }
//
// Cols, rows, err := adapter.Size() reports the current window size,
// falling back to $COLUMNS/$LINES when no ioctl is available (a pipe, a
// non-interactive host, or a platform without one).
//
// Escape sequences
//
// The escape-sequence builders (CursorForward, EraseToEndOfLine,
// ForegroundColor256, and so on) each return the literal bytes to write;
// callers concatenate everything for one redraw into a single Write so the
// terminal applies it atomically.
//
// Regions
//
// Adapter.NewRegion carves out a rectangular Region for the optional
// full-screen candidate-listing view used by Tab completion; Region.Draw
// paints its border and clears its content area.
package term
