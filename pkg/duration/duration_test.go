package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbeTimeoutIsFiveSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Second, HTTPProbing)
}

func TestTransportTimeoutsWithinProbeBudget(t *testing.T) {
	// Dial and TLS setup must fit inside a single probe's budget.
	assert.LessOrEqual(t, DialTimeout, HTTPProbing)
	assert.LessOrEqual(t, TLSHandshake, HTTPProbing)
}

func TestOrdering(t *testing.T) {
	assert.Less(t, HTTPProbing, HTTPAPI)
	assert.Less(t, HTTPAPI, SourceQuery)
	assert.Less(t, Shutdown, HookConnect)
}
