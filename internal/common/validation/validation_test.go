package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrize(t *testing.T) {
	assert.NoError(t, ValidatePrize("Nitro"))
	assert.NoError(t, ValidatePrize(strings.Repeat("é", MaxPrizeLength)))
	assert.Error(t, ValidatePrize("   "))
	assert.Error(t, ValidatePrize(strings.Repeat("a", MaxPrizeLength+1)))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.Error(t, ValidateDescription(strings.Repeat("a", MaxDescriptionLength+1)))
}

func TestValidateSnowflake(t *testing.T) {
	assert.NoError(t, ValidateSnowflake("175928847299117063"))
	assert.Error(t, ValidateSnowflake(""))
	assert.Error(t, ValidateSnowflake("abc"))
	assert.Error(t, ValidateSnowflake(strings.Repeat("1", 21)))
}
