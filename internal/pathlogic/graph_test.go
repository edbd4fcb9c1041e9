package pathlogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

func mustCompile(t *testing.T, raw string) *Graph {
	t.Helper()
	g, err := Compile([]byte(raw))
	require.NoError(t, err)
	return g
}

func TestCompile_ValidGraph(t *testing.T) {
	g := mustCompile(t, `[
		{"id":"root","type":"path","branches":{"yes":"q1","no":"fin"}},
		{"id":"q1","type":"question","question_id":7,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "root", g.Root().ID)
	assert.Equal(t, []uint{7}, g.QuestionIDs())
}

func TestCompile_UnresolvedGoto(t *testing.T) {
	_, err := Compile([]byte(`[
		{"id":"root","type":"question","question_id":1,"next":"jump"},
		{"id":"jump","type":"goto","label":"nowhere"},
		{"id":"fin","type":"end"}
	]`))
	assert.ErrorIs(t, err, apperrors.ErrUnresolvedGoto)
}

func TestCompile_GotoResolvesToBreakLabel(t *testing.T) {
	g := mustCompile(t, `[
		{"id":"root","type":"question","question_id":1,"next":"jump"},
		{"id":"jump","type":"goto","label":"landing"},
		{"id":"brk","type":"break","label":"landing","next":"fin"},
		{"id":"fin","type":"end"}
	]`)

	step, err := g.Next("root", "any")
	require.NoError(t, err)
	assert.Equal(t, StepEnd, step.Kind)
}

func TestCompile_GotoResolvesToNodeID(t *testing.T) {
	// Метка может адресовать именованный узел напрямую, не только break
	g := mustCompile(t, `[
		{"id":"root","type":"question","question_id":1,"next":"jump"},
		{"id":"jump","type":"goto","label":"q2"},
		{"id":"q2","type":"question","question_id":2,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)

	step, err := g.Next("root", "any")
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, step.Kind)
	assert.Equal(t, uint(2), step.QuestionID)
}

func TestCompile_UnreachableNode(t *testing.T) {
	_, err := Compile([]byte(`[
		{"id":"root","type":"question","question_id":1,"next":"fin"},
		{"id":"fin","type":"end"},
		{"id":"orphan","type":"end"}
	]`))
	assert.ErrorIs(t, err, apperrors.ErrUnreachableNode)
}

func TestCompile_MissingQuestionRef(t *testing.T) {
	_, err := Compile([]byte(`[
		{"id":"root","type":"question","next":"fin"},
		{"id":"fin","type":"end"}
	]`))
	assert.ErrorIs(t, err, apperrors.ErrMissingQuestionRef)
}

func TestCompile_DuplicateID(t *testing.T) {
	_, err := Compile([]byte(`[
		{"id":"root","type":"end"},
		{"id":"root","type":"end"}
	]`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCompile_BranchToUnknownNode(t *testing.T) {
	_, err := Compile([]byte(`[
		{"id":"root","type":"path","branches":{"a":"ghost"}}
	]`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCompile_EmptyOrMalformed(t *testing.T) {
	_, err := Compile([]byte(`[]`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = Compile([]byte(`{not json`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
