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

// Package floats provides the float32 vector kernels shared by training and serving.
package floats

import "github.com/chewxy/math32"

func checkLength(a, b []float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
}

// Zero fills zeros in a slice of 32-bit floats.
func Zero(a []float32) {
	for i := range a {
		a[i] = 0
	}
}

// Add two vectors: dst = dst + s
func Add(dst, s []float32) {
	checkLength(dst, s)
	for i := range dst {
		dst[i] += s[i]
	}
}

// MulConst multiplies a vector with a const: dst = dst * c
func MulConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] *= c
	}
}

// MulConstAdd multiplies a vector and a const, then adds to dst: dst = dst + a * c
func MulConstAdd(a []float32, c float32, dst []float32) {
	checkLength(a, dst)
	for i := range a {
		dst[i] += a[i] * c
	}
}

// MulConstAddTo computes dst = b + a * c.
func MulConstAddTo(a []float32, c float32, b, dst []float32) {
	checkLength(a, b)
	checkLength(a, dst)
	for i := range a {
		dst[i] = b[i] + a[i]*c
	}
}

// Dot two vectors. Products are rounded before they are summed in index order, so the result is
// the same on every architecture and never uses fused multiply-add.
func Dot(a, b []float32) (ret float32) {
	checkLength(a, b)
	for i := range a {
		ret += float32(a[i] * b[i])
	}
	return
}

// Norm returns the L2 norm of a vector.
func Norm(a []float32) float32 {
	var ret float32
	for _, v := range a {
		ret += v * v
	}
	return math32.Sqrt(ret)
}

// Normalize scales a vector to unit L2 norm. Zero vectors are left untouched.
func Normalize(a []float32) {
	if norm := Norm(a); norm > 0 {
		MulConst(a, 1/norm)
	}
}

// Cosine similarity of two vectors. It is 0 when either vector is zero.
func Cosine(a, b []float32) float32 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}
