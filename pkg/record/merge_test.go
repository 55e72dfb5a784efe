// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lily() Record {
	return MustNormalize(map[string]any{
		"name":  "Lily",
		"age":   35,
		"email": "Lily366@163.com",
	})
}

func TestMerge_EmptyPresenceIsNoOp(t *testing.T) {
	stored := lily()

	got := Merge(stored, PayloadOf(Record{}))

	assert.True(t, got.Equal(stored))
}

func TestMerge_FullPresenceReplacesEverything(t *testing.T) {
	stored := lily()
	values := MustNormalize(map[string]any{
		"name":  "Lilian",
		"age":   40,
		"email": "lilian@example.com",
	})

	got := Merge(stored, NewPayload(values))

	assert.True(t, got.Equal(values))
}

func TestMerge_Deterministic(t *testing.T) {
	stored := lily()
	p := PayloadOf(MustNormalize(map[string]any{"age": 36, "name": "L"}), "age", "name")

	first := Merge(stored, p)
	second := Merge(stored, p)

	assert.True(t, first.Equal(second))
}

func TestMerge_AbsentFieldKeepsStoredValue(t *testing.T) {
	stored := lily()
	// email carries a different value but is not in the presence set.
	p := PayloadOf(MustNormalize(map[string]any{
		"age":   36,
		"email": "other@example.com",
	}), "age")

	got := Merge(stored, p)

	assert.Equal(t, "Lily366@163.com", got["email"])
	assert.Equal(t, int64(36), got["age"])
}

func TestMerge_NestedValuesReplacedWholesale(t *testing.T) {
	stored := MustNormalize(map[string]any{
		"tags": []any{"a", "b"},
		"name": "x",
		"address": map[string]any{
			"city": "Paris",
			"zip":  "75001",
		},
	})
	p := PayloadOf(MustNormalize(map[string]any{
		"tags":    []any{"c"},
		"address": map[string]any{"city": "Lyon"},
	}), "tags", "address")

	got := Merge(stored, p)

	assert.Equal(t, []any{"c"}, got["tags"])
	assert.Equal(t, "x", got["name"])
	assert.Equal(t, map[string]any{"city": "Lyon"}, got["address"])
}

func TestMerge_LilyScenario(t *testing.T) {
	got := Merge(lily(), PayloadOf(MustNormalize(map[string]any{"age": 36}), "age"))

	want := MustNormalize(map[string]any{
		"name":  "Lily",
		"age":   36,
		"email": "Lily366@163.com",
	})
	assert.True(t, got.Equal(want), "got %v", got)
}

func TestMerge_PresentNullOverwrites(t *testing.T) {
	p, err := DecodePayload(jsonReader(`{"email": null}`))
	require.NoError(t, err)

	got := Merge(lily(), p)

	require.True(t, got.Has("email"))
	assert.Nil(t, got["email"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	stored := MustNormalize(map[string]any{"tags": []any{"a"}, "name": "x"})
	values := MustNormalize(map[string]any{"tags": []any{"b"}})
	p := NewPayload(values)

	got := Merge(stored, p)
	got["tags"].([]any)[0] = "mutated"
	got["name"] = "changed"

	assert.Equal(t, []any{"a"}, stored["tags"])
	assert.Equal(t, "x", stored["name"])
	assert.Equal(t, []any{"b"}, values["tags"])
}

func TestMerge_NilStored(t *testing.T) {
	got := Merge(nil, NewPayload(Record{"name": "n"}))
	assert.Equal(t, Record{"name": "n"}, got)
}
