/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

import (
	"strings"
)

// Expand turns the dotted keys of a flat map into nested maps, {"a.b": 1} becomes {"a": {"b": 1}}.
func Expand(value map[string]interface{}) map[string]interface{} {
	return expandPrefixed(value, "")
}

func expandPrefixed(value map[string]interface{}, prefix string) map[string]interface{} {
	result := make(map[string]interface{})
	if prefix != "" {
		prefix += "."
	}
	for k, val := range value {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		key := k[len(prefix):]
		idx := strings.Index(key, ".")
		if idx == -1 {
			// the more specific key wins, {"a.b": 1, "a": 2} -> {"a": {"b": 1}}
			if _, ok := result[key]; !ok {
				result[key] = val
			}
			continue
		}
		key = key[:idx]
		result[key] = expandPrefixed(value, prefix+key)
	}
	return result
}
