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
	"math"
	"time"

	"github.com/juju/ratelimit"
)

// RateLimiter is a token bucket.
type RateLimiter interface {
	// TakeAvailable takes up to count tokens without blocking and returns the number taken.
	TakeAvailable(count int64) int64
	// Take takes count tokens and returns how long the caller should wait before using them.
	Take(count int64) time.Duration
}

// NewRateLimiter creates a limiter admitting rate tokens per second with bursts of one second.
// A non-positive rate disables limiting.
func NewRateLimiter(rate float64) RateLimiter {
	if rate <= 0 {
		return Unlimited{}
	}
	return ratelimit.NewBucketWithRate(rate, int64(math.Max(1, math.Ceil(rate))))
}

type Unlimited struct{}

func (Unlimited) TakeAvailable(count int64) int64 {
	return count
}

func (Unlimited) Take(_ int64) time.Duration {
	return 0
}
