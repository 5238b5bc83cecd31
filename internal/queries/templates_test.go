package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirect(t *testing.T) {
	assert.Equal(t, "Donald Trump Kanye West", Direct("Donald Trump", "Kanye West"))
}

func TestDiscovery_StableOrder(t *testing.T) {
	want := []string{"Elon Musk", "Elon Musk event", "Elon Musk with", "Elon Musk meeting"}
	assert.Equal(t, want, Discovery("Elon Musk"))
	// Determinism: calling again produces byte-identical output.
	assert.Equal(t, Discovery("Elon Musk"), Discovery("Elon Musk"))
}

func TestBridge_StableOrder(t *testing.T) {
	want := []string{
		"Elon Musk Jimmy Fallon",
		"Elon Musk and Jimmy Fallon",
		"Elon Musk Jimmy Fallon event",
	}
	assert.Equal(t, want, Bridge("Elon Musk", "Jimmy Fallon"))
}

func TestVerification_StableOrder(t *testing.T) {
	want := []string{
		"Jimmy Fallon Beyoncé",
		"Jimmy Fallon and Beyoncé together",
	}
	assert.Equal(t, want, Verification("Jimmy Fallon", "Beyoncé"))
}
