package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeArgs(t *testing.T) {
	b, err := json.Marshal(timeArgs(time.Date(2024, 3, 17, 12, 21, 59, 0, time.Local)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hours": 12, "minutes": 21, "seconds": 59}`, string(b))
}
