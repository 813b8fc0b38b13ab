package authz

import (
	"fmt"
	"log/slog"
)

// Decision is the aggregate outcome of an authorization check.
type Decision struct {
	Granted bool
}

// Observer is notified of notable authorization outcomes. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	AuthorizationDenied(operation string)
	HandlerFault(operation string)
}

// Service aggregates handler votes into a single grant/deny decision.
//
// The handler list is fixed at construction and evaluated in registration
// order. A request is granted iff at least one handler votes succeed; no
// handler can veto another's success. The evaluation is synchronous and
// performs no I/O.
type Service struct {
	logger   *slog.Logger
	handlers []Handler
	observer Observer
}

// NewService constructs a Service with the given ordered handler list.
func NewService(logger *slog.Logger, handlers ...Handler) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, handlers: handlers}
}

// SetObserver attaches an outcome observer. Must be called before the
// service is shared across goroutines.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Authorize evaluates every registered handler for (principal, operation,
// resource). An absent principal is denied without invoking handlers. A
// handler that panics or returns an out-of-range vote is a programming
// defect: the whole check is denied and the fault logged.
func (s *Service) Authorize(p *Principal, op Operation, res *Resource) Decision {
	if p == nil {
		s.logger.Warn("authorization denied: no principal",
			slog.String("operation", string(op)))
		s.denied(op)
		return Decision{}
	}

	granted := false
	faulted := false
	for _, h := range s.handlers {
		vote, err := s.evaluate(h, p, op, res)
		if err != nil {
			s.logger.Error("authorization handler fault",
				slog.String("principal_id", p.ID),
				slog.String("operation", string(op)),
				slog.Int64("resource_id", resourceID(res)),
				slog.Any("error", err))
			if s.observer != nil {
				s.observer.HandlerFault(string(op))
			}
			faulted = true
			continue
		}
		if vote == VoteSucceed {
			granted = true
		}
	}
	if faulted {
		// Fail closed on internal error, even if another handler succeeded.
		s.denied(op)
		return Decision{}
	}
	if !granted {
		s.logger.Warn("authorization denied",
			slog.String("principal_id", p.ID),
			slog.String("operation", string(op)),
			slog.Int64("resource_id", resourceID(res)))
		s.denied(op)
	}
	return Decision{Granted: granted}
}

func (s *Service) denied(op Operation) {
	if s.observer != nil {
		s.observer.AuthorizationDenied(string(op))
	}
}

func (s *Service) evaluate(h Handler, p *Principal, op Operation, res *Resource) (vote Vote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	vote = h.Evaluate(p, op, res)
	if vote != VoteAbstain && vote != VoteSucceed {
		return VoteAbstain, fmt.Errorf("handler returned invalid vote %d", vote)
	}
	return vote, nil
}

func resourceID(res *Resource) int64 {
	if res == nil {
		return 0
	}
	return res.ID
}
