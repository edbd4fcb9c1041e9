package pathlogic

import (
	"fmt"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// validate выполняет структурную проверку графа:
//   - каждый тип узла несёт обязательные поля и ссылается на существующие узлы;
//   - каждая метка goto разрешается в break/именованный узел этого же графа;
//   - каждый узел достижим из корня.
//
// Перенос этих проверок на момент сохранения превращает большой класс
// ошибок обхода в ошибки загрузки. Метка может легально указывать назад,
// поэтому циклы через goto валидацию проходят — их ограничивает счётчик
// посещений в Next.
func (g *Graph) validate() error {
	for i := range g.nodes {
		n := &g.nodes[i]
		switch n.Type {
		case NodeQuestion:
			if n.QuestionID == 0 {
				return fmt.Errorf("%w: node %q", apperrors.ErrMissingQuestionRef, n.ID)
			}
			if n.Next == "" {
				return fmt.Errorf("%w: question node %q has no successor", apperrors.ErrValidation, n.ID)
			}
			if _, ok := g.node(n.Next); !ok {
				return fmt.Errorf("%w: question node %q points to unknown node %q", apperrors.ErrValidation, n.ID, n.Next)
			}
		case NodePath:
			if len(n.Branches) == 0 && n.Default == "" {
				return fmt.Errorf("%w: path node %q has no branches", apperrors.ErrValidation, n.ID)
			}
			for answerID, target := range n.Branches {
				if _, ok := g.node(target); !ok {
					return fmt.Errorf("%w: path node %q branch %q points to unknown node %q",
						apperrors.ErrValidation, n.ID, answerID, target)
				}
			}
			if n.Default != "" {
				if _, ok := g.node(n.Default); !ok {
					return fmt.Errorf("%w: path node %q default points to unknown node %q",
						apperrors.ErrValidation, n.ID, n.Default)
				}
			}
		case NodeBreak:
			if n.Next == "" {
				return fmt.Errorf("%w: break node %q has no successor", apperrors.ErrValidation, n.ID)
			}
			if _, ok := g.node(n.Next); !ok {
				return fmt.Errorf("%w: break node %q points to unknown node %q", apperrors.ErrValidation, n.ID, n.Next)
			}
		case NodeGoto:
			if n.Label == "" {
				return fmt.Errorf("%w: goto node %q has empty label", apperrors.ErrUnresolvedGoto, n.ID)
			}
			if _, ok := g.resolveLabel(n.Label); !ok {
				return fmt.Errorf("%w: node %q label %q", apperrors.ErrUnresolvedGoto, n.ID, n.Label)
			}
		case NodeEnd:
			// терминальный, полей нет
		default:
			return fmt.Errorf("%w: node %q has unknown type %q", apperrors.ErrValidation, n.ID, n.Type)
		}
	}

	return g.checkReachability()
}

// checkReachability обходит граф в ширину от корня по всем рёбрам
// (ветки, default, next, цель goto) и требует достижимости каждого узла.
func (g *Graph) checkReachability() error {
	visited := make(map[string]bool, len(g.nodes))
	queue := []string{g.nodes[0].ID}
	visited[g.nodes[0].ID] = true

	push := func(id string) {
		if id != "" && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		n, _ := g.node(queue[0])
		queue = queue[1:]

		switch n.Type {
		case NodePath:
			for _, target := range n.Branches {
				push(target)
			}
			push(n.Default)
		case NodeQuestion, NodeBreak:
			push(n.Next)
		case NodeGoto:
			if target, ok := g.resolveLabel(n.Label); ok {
				push(target.ID)
			}
		}
	}

	for _, n := range g.nodes {
		if !visited[n.ID] {
			return fmt.Errorf("%w: node %q", apperrors.ErrUnreachableNode, n.ID)
		}
	}
	return nil
}
