package errors

import "errors"

// Общие ошибки приложения. Конкретные ошибки движка (см. ниже) оборачивают
// эти базовые, чтобы errors.Is срабатывал и на категорию, и на частный случай.
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthenticated используется, когда вызывающий не аутентифицирован.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных
	// (в том числе структурных ошибок графа, отклоняемых до любого изменения состояния).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (повторное добавление вопроса в пул, удаление из пустого пула и т.п.).
	ErrConflict = errors.New("resource state conflict")

	// ErrInvalidState используется, когда операция недопустима для текущего
	// состояния сессии (например, ответ в уже завершённую попытку).
	ErrInvalidState = errors.New("operation invalid for current state")

	// ErrCapacity используется, когда запрошено больше, чем доступно
	// (выборка больше пула, исчерпан лимит пересдач).
	ErrCapacity = errors.New("capacity exceeded")

	// ErrExternalService используется при сбое или таймауте внешнего сервиса
	// проверки ответов. Повторяема на стороне вызывающего.
	ErrExternalService = errors.New("external service failure")
)

// Ошибки целостности графа переходов. Фатальны, никогда не ретраятся.
var (
	// ErrUnresolvedGoto — метка goto не разрешается ни в один узел графа.
	ErrUnresolvedGoto = errors.New("unresolved goto label")

	// ErrUnreachableNode — узел недостижим из корня графа.
	ErrUnreachableNode = errors.New("unreachable node")

	// ErrMissingQuestionRef — узел question не ссылается на вопрос.
	ErrMissingQuestionRef = errors.New("missing question reference")

	// ErrCyclicPath — обход зациклился (превышен лимит посещений за один шаг).
	ErrCyclicPath = errors.New("cyclic path")

	// ErrNoMatchingBranch — у path-узла нет ветки для данного ответа и нет ветки по умолчанию.
	ErrNoMatchingBranch = errors.New("no matching branch")
)
