package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// HelpText lists the supported chat commands.
const HelpText = "Commands:\n/stock <outlet> [model] - stock levels at an outlet\n/lowstock <outlet> - models running low\n/help - this message"

// StockReader is the slice of the reporting service the dispatcher needs.
type StockReader interface {
	StockView(location, keyword string) (models.StockView, error)
	LowStock(location string) ([]models.StockLine, error)
	ResolveLocation(code string) (string, bool)
}

// Dispatcher answers parsed chat commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	stock  StockReader
	logger *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(stock StockReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{stock: stock, logger: logger}
}

// HandleCommand builds the reply text for cmd. Lookup failures become user
// facing replies; only malformed commands return an error.
func (s *Service) HandleCommand(_ context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStock:
		if len(cmd.Args) == 0 {
			return "", ErrInvalidArguments
		}
		keyword := ""
		if len(cmd.Args) > 1 {
			keyword = cmd.Args[1]
		}
		outlet, ok := s.stock.ResolveLocation(cmd.Args[0])
		if !ok {
			return unknownOutlet(cmd.Args[0]), nil
		}
		view, err := s.stock.StockView(outlet, keyword)
		if err != nil {
			return lookupReply(err)
		}
		return reporting.StockText(view), nil
	case models.CommandLowStock:
		if len(cmd.Args) == 0 {
			return "", ErrInvalidArguments
		}
		outlet, ok := s.stock.ResolveLocation(cmd.Args[0])
		if !ok {
			return unknownOutlet(cmd.Args[0]), nil
		}
		low, err := s.stock.LowStock(outlet)
		if err != nil {
			return lookupReply(err)
		}
		if len(low) == 0 {
			return fmt.Sprintf("All models at %s are in stock.", outlet), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Low stock at %s:", outlet)
		for _, line := range low {
			fmt.Fprintf(&b, "\n- %s: %d (%s)", line.ModelCode, line.Quantity, line.Status)
		}
		return b.String(), nil
	default:
		return HelpText, nil
	}
}

func unknownOutlet(raw string) string {
	return fmt.Sprintf("Unknown outlet %s.", strings.TrimSpace(raw))
}

func lookupReply(err error) (string, error) {
	var notFound *models.LocationNotFoundError
	if errors.As(err, &notFound) {
		return unknownOutlet(notFound.Code), nil
	}
	return "", err
}
