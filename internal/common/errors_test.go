package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	conn := ConnectionError("psxweb", "timeout", errors.New("dial tcp: i/o timeout"))
	data := DataError("psxapi", "bad payload", nil)
	auth := AuthError("tradingview", "rejected", nil)
	config := ConfigError("period", "invalid", nil)

	assert.Equal(t, ClassConnection, ClassOf(conn))
	assert.Equal(t, ClassData, ClassOf(data))
	assert.Equal(t, ClassAuth, ClassOf(auth))
	assert.Equal(t, ClassConfig, ClassOf(config))

	assert.True(t, IsAuth(auth))
	assert.False(t, IsAuth(conn))
	assert.True(t, IsConfig(config))
	assert.True(t, IsData(data))
}

func TestClassOf_UnclassifiedIsTransient(t *testing.T) {
	assert.Equal(t, ClassConnection, ClassOf(errors.New("something broke")))
}

func TestSourceError_SurvivesWrapping(t *testing.T) {
	auth := AuthError("tradingview", "credentials rejected", nil)
	wrapped := fmt.Errorf("resolving HBL: %w", auth)

	assert.True(t, IsAuth(wrapped))

	var se *SourceError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "tradingview", se.Source)
}

func TestSourceError_Message(t *testing.T) {
	err := ConnectionError("psxweb", "historical page request", errors.New("connection refused"))
	assert.Contains(t, err.Error(), "psxweb")
	assert.Contains(t, err.Error(), "connection")
	assert.Contains(t, err.Error(), "connection refused")
}
