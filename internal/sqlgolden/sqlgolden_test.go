// Copyright 2024 The ClickGraph Authors.
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

package sqlgolden

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const socialFixture = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER);
CREATE TABLE follows (id INTEGER PRIMARY KEY, from_id INTEGER, to_id INTEGER);
INSERT INTO users VALUES (1, 'alice', 30), (2, 'bob', 25), (3, 'carol', 40);
INSERT INTO follows VALUES (1, 1, 2), (2, 2, 3);
`

func TestRunSimpleJoin(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.LoadFixture(socialFixture))

	cols, rows, err := h.Run(`
		SELECT a.name AS a_name, b.name AS b_name
		FROM users AS a
		JOIN follows AS f ON f.from_id = a.id
		JOIN users AS b ON b.id = f.to_id
		ORDER BY a.name
	`)
	require.NoError(t, err)
	require.Equal(t, Columns{"a_name", "b_name"}, cols)
	require.Len(t, rows, 2)
	require.Equal(t, "alice", rows[0][0])
	require.Equal(t, "bob", rows[0][1])
}

func TestRunRecursiveCTE(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.LoadFixture(socialFixture))

	cols, rows, err := h.Run(`
		WITH RECURSIVE path(start_id, end_id, hop_count) AS (
			SELECT from_id, to_id, 1 FROM follows
			UNION ALL
			SELECT path.start_id, f.to_id, path.hop_count + 1
			FROM path JOIN follows AS f ON f.from_id = path.end_id
			WHERE path.hop_count < 5
		)
		SELECT start_id, end_id, hop_count FROM path ORDER BY hop_count
	`)
	require.NoError(t, err)
	require.Equal(t, Columns{"start_id", "end_id", "hop_count"}, cols)
	require.Len(t, rows, 3)
}

func TestRunSyntaxErrorSurfaces(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.LoadFixture(socialFixture))
	_, _, err = h.Run(`SELECT FROM WHERE`)
	require.Error(t, err)
}
