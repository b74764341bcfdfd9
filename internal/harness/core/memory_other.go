// Copyright 2025 Josh Morgan. All Rights Reserved.
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

//go:build !linux

package core

import "errors"

// AvailableMemory has no portable implementation off Linux; reporting an
// error makes backend selection fall back to the disk path, which is safe
// everywhere.
func AvailableMemory() (uint64, error) {
	return 0, errors.New("core: no memory probe on this platform")
}
