package nfce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

func TestIsServiceUnavailable(t *testing.T) {
	for _, c := range []string{"103", "105", "108", "109"} {
		assert.True(t, nfce.IsServiceUnavailable(c), c)
	}
	for _, c := range []string{"100", "104", "225", "236", ""} {
		assert.False(t, nfce.IsServiceUnavailable(c), c)
	}
}

func TestIsCancelRegistered(t *testing.T) {
	for _, c := range []string{"135", "136", "155"} {
		assert.True(t, nfce.IsCancelRegistered(c), c)
	}
	for _, c := range []string{"100", "128", "573", ""} {
		assert.False(t, nfce.IsCancelRegistered(c), c)
	}
}
