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

package term

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

var growTests = []struct {
	Start  rect
	Dw, Dh int
	Expect rect
}{
	{
		rect{1, 2, 10, 5},
		1, 1,
		rect{0, 1, 12, 7},
	},
	{
		rect{1, 2, 10, 5},
		-1, -1,
		rect{2, 3, 8, 3},
	},
}

func TestGrow(t *testing.T) {
	for _, test := range growTests {
		grown := test.Start.grow(test.Dw, test.Dh)
		if got, want := grown, test.Expect; !reflect.DeepEqual(got, want) {
			t.Errorf("%v.grow(%d,%d) = %v, want %v",
				test.Start, test.Dw, test.Dh, got, want)
		}
	}
}

var frameTests = []struct {
	Desc   string
	Func   func(*Region)
	Expect string
}{
	{
		"Empty region",
		func(r *Region) {
			r.SetSize(4, 3)
		},
		"\x1b[1;1H    " +
			"\x1b[2;1H    " +
			"\x1b[3;1H    " +
			"\x1b[1;1H",
	},
	{
		"Empty region, with border",
		func(r *Region) {
			r.SetSize(4, 3)
			r.SetBorder(SimpleBorder)
		},
		"\x1b[1;1H,--." +
			"\x1b[2;1H|  |" +
			"\x1b[3;1H`--'" +
			"\x1b[2;2H",
	},
}

func TestFrame(t *testing.T) {
	for _, test := range frameTests {
		var buf bytes.Buffer
		adapter := NewAdapter(nil, &buf)
		region := adapter.NewRegion(0, 0, 0, 0)

		test.Func(region)
		region.Draw()

		if got := buf.String(); got != test.Expect {
			t.Errorf("%s: output = %q, want %q", test.Desc, got, test.Expect)
		}
	}
}

func TestSetCursorAndClear(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewAdapter(nil, &buf)

	adapter.SetCursor(3, 4)
	if got, want := buf.String(), "\x1b[5;4H"; got != want {
		t.Errorf("SetCursor(3,4) wrote %q, want %q", got, want)
	}

	buf.Reset()
	adapter.Clear()
	if got := buf.String(); !strings.Contains(got, "2J") {
		t.Errorf("Clear() wrote %q, want it to contain the clear-screen sequence", got)
	}
}
