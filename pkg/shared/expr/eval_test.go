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
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_eval_json(t *testing.T) {
	t.Run("test nil", func(t *testing.T) {
		m := _json(nil)
		assert.Nil(t, m)
	})

	t.Run("test invalid json bytes", func(t *testing.T) {
		assert.Panics(t, func() { _json([]byte("abc")) })
	})

	t.Run("test valid json bytes", func(t *testing.T) {
		m := _json([]byte(`{"a": "b"}`))
		assert.Equal(t, 1, len(m))
		assert.Equal(t, "b", m["a"])
	})

	t.Run("test valid string", func(t *testing.T) {
		m := _json(`{"a": "b"}`)
		assert.Equal(t, "b", m["a"])
	})

	t.Run("test default panic", func(t *testing.T) {
		assert.Panics(t, func() { _json(222) })
	})
}

func Test_eval_int(t *testing.T) {
	assert.Equal(t, 1, _int("1"))
	assert.Equal(t, 2, _int([]byte("2")))
	assert.Equal(t, 3, _int(3.9))
	assert.Equal(t, 4, _int(4))
	assert.Panics(t, func() { _int("a") })
	assert.Panics(t, func() { _int(nil) })
}

func Test_eval_float(t *testing.T) {
	assert.Equal(t, 1.5, _float("1.5"))
	assert.Equal(t, 2.5, _float([]byte("2.5")))
	assert.Equal(t, 3.0, _float(3))
	assert.Equal(t, 4.0, _float(int64(4)))
	assert.Panics(t, func() { _float("a") })
	assert.Panics(t, func() { _float(true) })
}

func Test_eval_string(t *testing.T) {
	assert.Equal(t, "a", _string("a"))
	assert.Equal(t, "b", _string([]byte("b")))
	assert.Equal(t, "", _string(nil))
	assert.Equal(t, "1", _string(1))
}

func TestExpand(t *testing.T) {
	m := map[string]interface{}{
		"name": "test",
		"a":    "2",
		"a.b":  "3",
		"a.c":  "4",
	}
	m1 := Expand(m)
	assert.IsType(t, m1["a"], m1)
	assert.Len(t, m1["a"], 2)
	assert.Equal(t, "test", m1["name"])
	c1 := m1["a"].(map[string]interface{})
	assert.Equal(t, "3", c1["b"])
	assert.Equal(t, "4", c1["c"])
}
