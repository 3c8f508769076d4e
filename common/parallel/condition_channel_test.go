// Copyright 2026 cinerecs Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionChannel(t *testing.T) {
	c := NewConditionChannel()
	// no signal
	select {
	case <-c.C:
		t.Fatal("unexpected signal")
	default:
	}
	// signals are merged
	for i := 0; i < 10; i++ {
		c.Signal()
	}
	<-c.C
	select {
	case <-c.C:
		t.Fatal("unexpected signal")
	default:
	}
	// a signal after receiving is delivered again
	c.Signal()
	_, ok := <-c.C
	assert.True(t, ok)
}
