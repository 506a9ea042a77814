// Copyright 2025 Poiesic Systems
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


package cache

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Key builds a stable cache key from an operation name and its arguments
// using BLAKE2b hashing. Identical inputs always produce identical keys.
func Key(op string, args ...string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(op))
	for _, arg := range args {
		// Length-prefix each part so ("ab","c") and ("a","bc") differ.
		h.Write([]byte{byte(len(arg)), byte(len(arg) >> 8)})
		h.Write([]byte(arg))
	}
	return hex.EncodeToString(h.Sum(nil))
}
