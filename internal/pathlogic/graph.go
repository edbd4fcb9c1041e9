// Package pathlogic реализует граф переходов адаптивной анкеты:
// компиляцию JSON-описания в арену узлов, валидацию при сохранении
// и пошаговый обход при прохождении попытки.
package pathlogic

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// Типы узлов графа
const (
	NodePath     = "path"     // ветвление по идентификатору ответа
	NodeQuestion = "question" // ссылка на один вопрос
	NodeBreak    = "break"    // именованная точка приземления для goto
	NodeGoto     = "goto"     // нелокальный переход по метке
	NodeEnd      = "end"      // терминальный узел
)

// Node — помеченный вариант узла. Представление — арена с индексом по id,
// а не встроенные ссылки: разрешение goto и защита от циклов сводятся
// к поиску по индексу.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// question
	QuestionID uint `json:"question_id,omitempty"`

	// question, break: единственный преемник
	Next string `json:"next,omitempty"`

	// path: идентификатор ответа -> id узла; Default — ветка по умолчанию
	Branches map[string]string `json:"branches,omitempty"`
	Default  string            `json:"default,omitempty"`

	// break, goto
	Label string `json:"label,omitempty"`
}

// Graph — скомпилированный, валидированный граф. Неизменяем после Compile.
type Graph struct {
	nodes  []Node
	index  map[string]int // id узла -> позиция в арене
	labels map[string]int // метка break -> позиция в арене
}

// Compile разбирает JSON-описание (массив узлов, первый — корень),
// строит индексы и выполняет полную валидацию. Все структурные ошибки
// обнаруживаются здесь, при сохранении анкеты, а не во время обхода.
func Compile(raw []byte) (*Graph, error) {
	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("%w: malformed path graph: %v", apperrors.ErrValidation, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: path graph has no nodes", apperrors.ErrValidation)
	}

	g := &Graph{
		nodes:  nodes,
		index:  make(map[string]int, len(nodes)),
		labels: make(map[string]int),
	}

	for i, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node #%d has empty id", apperrors.ErrValidation, i)
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", apperrors.ErrValidation, n.ID)
		}
		g.index[n.ID] = i
		if n.Type == NodeBreak && n.Label != "" {
			g.labels[n.Label] = i
		}
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Root возвращает корневой узел графа
func (g *Graph) Root() *Node {
	return &g.nodes[0]
}

// Len возвращает количество узлов
func (g *Graph) Len() int {
	return len(g.nodes)
}

// QuestionIDs возвращает id всех вопросов, на которые ссылается граф
func (g *Graph) QuestionIDs() []uint {
	var ids []uint
	for _, n := range g.nodes {
		if n.Type == NodeQuestion {
			ids = append(ids, n.QuestionID)
		}
	}
	return ids
}

// NodeByID возвращает узел по id
func (g *Graph) NodeByID(id string) (*Node, error) {
	n, ok := g.node(id)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", apperrors.ErrNotFound, id)
	}
	return n, nil
}

// node возвращает узел по id
func (g *Graph) node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[i], true
}

// resolveLabel разрешает метку goto: сначала по меткам break-узлов,
// затем по id узла (метка может адресовать именованный узел напрямую).
func (g *Graph) resolveLabel(label string) (*Node, bool) {
	if i, ok := g.labels[label]; ok {
		return &g.nodes[i], true
	}
	return g.node(label)
}
