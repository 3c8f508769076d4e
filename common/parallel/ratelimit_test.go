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
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnlimited(t *testing.T) {
	limiter := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		assert.Equal(t, int64(1), limiter.TakeAvailable(1))
	}
	assert.Zero(t, limiter.Take(100))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2)
	assert.Equal(t, int64(2), limiter.TakeAvailable(5))
	assert.Equal(t, int64(0), limiter.TakeAvailable(1))
	assert.Eventually(t, func() bool {
		return limiter.TakeAvailable(1) == 1
	}, 2*time.Second, 50*time.Millisecond)

	// bursts are at least one token
	limiter = NewRateLimiter(0.5)
	assert.Equal(t, int64(1), limiter.TakeAvailable(1))
	assert.Equal(t, int64(0), limiter.TakeAvailable(1))
}
