package pathlogic

import (
	"fmt"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// Виды шагов, которыми обход отвечает вызывающему
const (
	StepQuestion = "question" // предъявить вопрос QuestionID
	StepChoice   = "choice"   // предъявить выбор ветки path-узла
	StepEnd      = "end"      // попытка завершена
)

// Step — результат одного шага обхода
type Step struct {
	Kind       string
	NodeID     string
	QuestionID uint     // для StepQuestion
	Choices    []string `json:"choices,omitempty"` // ключи веток для StepChoice
}

// FirstStep возвращает первый шаг прохождения: обход от корня до первого
// узла, требующего взаимодействия (question или path), либо до end.
func (g *Graph) FirstStep() (*Step, error) {
	return g.settle(g.nodes[0].ID, make(map[string]int))
}

// Next выполняет один переход: потребляет submittedAnswerID в узле
// currentNodeID и продвигается до следующего интерактивного узла.
//
//   - path: ветка по submittedAnswerID, иначе default, иначе NoMatchingBranch
//     (фатально для сессии, наружу, без тихого пропуска);
//   - question: переход к единственному преемнику (ответ уже записан вызывающим);
//   - далее цепочки goto/break проходятся без потребления ответа.
//
// Повторное посещение узлов сверх границы (количество узлов графа) в рамках
// одного вызова считается бесконечным циклом и завершается ErrCyclicPath.
func (g *Graph) Next(currentNodeID, submittedAnswerID string) (*Step, error) {
	current, ok := g.node(currentNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", apperrors.ErrNotFound, currentNodeID)
	}

	visits := make(map[string]int)
	visits[current.ID]++

	var nextID string
	switch current.Type {
	case NodePath:
		target, err := g.branch(current, submittedAnswerID)
		if err != nil {
			return nil, err
		}
		nextID = target
	case NodeQuestion:
		nextID = current.Next
	case NodeEnd:
		return &Step{Kind: StepEnd, NodeID: current.ID}, nil
	default:
		return nil, fmt.Errorf("%w: cannot submit an answer at %s node %q",
			apperrors.ErrInvalidState, current.Type, current.ID)
	}

	return g.settle(nextID, visits)
}

// branch выбирает ветку path-узла по идентификатору ответа
func (g *Graph) branch(n *Node, submittedAnswerID string) (string, error) {
	if target, ok := n.Branches[submittedAnswerID]; ok {
		return target, nil
	}
	if n.Default != "" {
		return n.Default, nil
	}
	return "", fmt.Errorf("%w: path node %q has no branch for answer %q",
		apperrors.ErrNoMatchingBranch, n.ID, submittedAnswerID)
}

// settle продвигается по узлам, не требующим ответа (goto, break),
// до первого интерактивного узла или конца. Граница посещений защищает
// от патологических графов, которые валидация исключить не может:
// метка goto может легально указывать назад.
func (g *Graph) settle(id string, visits map[string]int) (*Step, error) {
	bound := len(g.nodes)

	for {
		n, ok := g.node(id)
		if !ok {
			return nil, fmt.Errorf("%w: node %q", apperrors.ErrNotFound, id)
		}

		visits[n.ID]++
		if visits[n.ID] > bound {
			return nil, fmt.Errorf("%w: node %q revisited more than %d times in one step",
				apperrors.ErrCyclicPath, n.ID, bound)
		}

		switch n.Type {
		case NodeQuestion:
			return &Step{Kind: StepQuestion, NodeID: n.ID, QuestionID: n.QuestionID}, nil
		case NodePath:
			choices := make([]string, 0, len(n.Branches))
			for answerID := range n.Branches {
				choices = append(choices, answerID)
			}
			return &Step{Kind: StepChoice, NodeID: n.ID, Choices: choices}, nil
		case NodeEnd:
			return &Step{Kind: StepEnd, NodeID: n.ID}, nil
		case NodeBreak:
			id = n.Next
		case NodeGoto:
			// переход по метке без потребления ответа; цепочки goto допустимы
			target, ok := g.resolveLabel(n.Label)
			if !ok {
				return nil, fmt.Errorf("%w: node %q label %q", apperrors.ErrUnresolvedGoto, n.ID, n.Label)
			}
			id = target.ID
		default:
			return nil, fmt.Errorf("%w: node %q has unknown type %q", apperrors.ErrValidation, n.ID, n.Type)
		}
	}
}
