package label_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meetup_hub_server/pkg/label"
)

func TestFor(t *testing.T) {
	assert.Equal(t, "Participant1", label.For(1))
	assert.Equal(t, "Participant2", label.For(2))
	assert.Equal(t, "Participant42", label.For(42))
}

func TestForInvalidOrdinal(t *testing.T) {
	// 非法序号兜底到 1，不 panic 不返回空串
	assert.Equal(t, "Participant1", label.For(0))
	assert.Equal(t, "Participant1", label.For(-3))
}

func TestForStable(t *testing.T) {
	// 同一序号任何时候生成的标识一致
	for i := 1; i <= 100; i++ {
		assert.Equal(t, label.For(i), label.For(i))
	}
}
