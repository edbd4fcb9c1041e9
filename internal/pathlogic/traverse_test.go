package pathlogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// Граф из сценария: root(path){1:end, 2:question(Q7)->end}
func branchingGraph(t *testing.T) *Graph {
	return mustCompile(t, `[
		{"id":"root","type":"path","branches":{"1":"fin","2":"q7"}},
		{"id":"q7","type":"question","question_id":7,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)
}

func TestNext_BranchDirectlyToEnd(t *testing.T) {
	g := branchingGraph(t)

	step, err := g.Next("root", "1")
	require.NoError(t, err)
	assert.Equal(t, StepEnd, step.Kind)
}

func TestNext_BranchThroughQuestion(t *testing.T) {
	g := branchingGraph(t)

	step, err := g.Next("root", "2")
	require.NoError(t, err)
	require.Equal(t, StepQuestion, step.Kind)
	assert.Equal(t, uint(7), step.QuestionID)

	step, err = g.Next(step.NodeID, "whatever")
	require.NoError(t, err)
	assert.Equal(t, StepEnd, step.Kind)
}

func TestNext_NoMatchingBranch(t *testing.T) {
	g := branchingGraph(t)

	_, err := g.Next("root", "42")
	assert.ErrorIs(t, err, apperrors.ErrNoMatchingBranch)
}

func TestNext_FallsBackToDefaultBranch(t *testing.T) {
	g := mustCompile(t, `[
		{"id":"root","type":"path","branches":{"a":"q1"},"default":"fin"},
		{"id":"q1","type":"question","question_id":1,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)

	step, err := g.Next("root", "unmapped")
	require.NoError(t, err)
	assert.Equal(t, StepEnd, step.Kind)
}

func TestNext_ChainedGotosDoNotConsumeAnswer(t *testing.T) {
	g := mustCompile(t, `[
		{"id":"root","type":"question","question_id":1,"next":"j1"},
		{"id":"j1","type":"goto","label":"hop"},
		{"id":"b1","type":"break","label":"hop","next":"j2"},
		{"id":"j2","type":"goto","label":"q2"},
		{"id":"q2","type":"question","question_id":2,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)

	// Один ответ проводит через два goto и break до следующего вопроса
	step, err := g.Next("root", "any")
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, step.Kind)
	assert.Equal(t, uint(2), step.QuestionID)
}

func TestNext_CyclicPathDetected(t *testing.T) {
	// Метка легально указывает назад; без вопросов между goto обход зацикливается
	g := mustCompile(t, `[
		{"id":"root","type":"question","question_id":1,"next":"loop"},
		{"id":"loop","type":"break","label":"again","next":"jump"},
		{"id":"jump","type":"goto","label":"again"}
	]`)

	_, err := g.Next("root", "any")
	assert.ErrorIs(t, err, apperrors.ErrCyclicPath)
}

func TestNext_UnknownCurrentNode(t *testing.T) {
	g := branchingGraph(t)

	_, err := g.Next("ghost", "1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNext_SubmitAtEndNode(t *testing.T) {
	g := branchingGraph(t)

	step, err := g.Next("fin", "1")
	require.NoError(t, err)
	assert.Equal(t, StepEnd, step.Kind)
}

func TestFirstStep(t *testing.T) {
	g := branchingGraph(t)

	step, err := g.FirstStep()
	require.NoError(t, err)
	require.Equal(t, StepChoice, step.Kind)
	assert.Equal(t, "root", step.NodeID)
	assert.ElementsMatch(t, []string{"1", "2"}, step.Choices)

	// Корень-вопрос предъявляется сразу
	g2 := mustCompile(t, `[
		{"id":"q1","type":"question","question_id":5,"next":"fin"},
		{"id":"fin","type":"end"}
	]`)
	step, err = g2.FirstStep()
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, step.Kind)
	assert.Equal(t, uint(5), step.QuestionID)
}
