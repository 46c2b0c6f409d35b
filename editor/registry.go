package editor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

// maxHintDistance is the largest edit distance of a "did you mean" hint.
const maxHintDistance = 3

// Registry is the catalog of the commands of an editor session. It is
// constructed explicitly and handed to the Session that uses it.
type Registry struct {
	// commandsMap provides lookup by id
	commandsMap map[string]Command
	// commandsList keeps the registration order
	commandsList []Command
	logger       *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{commandsMap: map[string]Command{}, logger: logger}
}

// Register adds a command. When the id is already taken, the first
// registration wins and the new command is ignored with a warning.
func (r *Registry) Register(cmd Command) {
	if _, exists := r.commandsMap[cmd.ID()]; exists {
		r.logger.Warn("command is already registered", zap.String("command", cmd.ID()))
		return
	}
	r.commandsMap[cmd.ID()] = cmd
	r.commandsList = append(r.commandsList, cmd)
	r.logger.Debug("registered command", zap.String("command", cmd.ID()))
}

// RegisterAll registers the commands in order.
func (r *Registry) RegisterAll(cmds ...Command) {
	for _, cmd := range cmds {
		r.Register(cmd)
	}
}

// Get returns the command with the given id.
func (r *Registry) Get(id string) (Command, error) {
	cmd, ok := r.commandsMap[id]
	if !ok {
		return nil, r.notFound(id)
	}
	return cmd, nil
}

// List returns all the commands, in registration order.
func (r *Registry) List() []Command {
	return append([]Command(nil), r.commandsList...)
}

// Search returns the commands whose name, keywords or description contain
// the term, ignoring case, in registration order. An empty term matches
// every command.
func (r *Registry) Search(term string) []Command {
	term = strings.ToLower(strings.TrimSpace(term))
	var found []Command
	for _, cmd := range r.commandsList {
		if matches(cmd, term) {
			found = append(found, cmd)
		}
	}
	return found
}

func matches(cmd Command, term string) bool {
	if strings.Contains(strings.ToLower(cmd.Name()), term) {
		return true
	}
	for _, kw := range cmd.Keywords() {
		if strings.Contains(strings.ToLower(kw), term) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(cmd.Description()), term)
}

// Execute runs the command with the given id. Every failure is returned as
// a result: unknown ids, failed preconditions and panics while executing.
func (r *Registry) Execute(id string, ctx *Context) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			r.logger.Error("command panicked", zap.String("command", id), zap.Error(err))
			result = Result{Message: "Error executing command: " + err.Error(), Err: err}
		}
	}()
	cmd, err := r.Get(id)
	if err != nil {
		r.logger.Warn("cannot execute command", zap.String("command", id), zap.Error(err))
		return Result{Message: err.Error(), Err: err}
	}
	if ctx == nil || ctx.State == nil {
		err := fmt.Errorf("%w: %s: no editor state", ErrPreconditionFailed, id)
		r.logger.Warn("cannot execute command", zap.String("command", id), zap.Error(err))
		return Result{Message: err.Error(), Err: err}
	}
	if !cmd.CanExecute(ctx) {
		err := fmt.Errorf("%w: %s", ErrPreconditionFailed, id)
		r.logger.Debug("command precondition failed", zap.String("command", id))
		return Result{Message: err.Error(), Err: err}
	}
	result = cmd.Execute(ctx)
	if !result.Success {
		r.logger.Debug("command failed", zap.String("command", id), zap.String("message", result.Message))
	}
	return result
}

// Clear removes every command.
func (r *Registry) Clear() {
	r.commandsMap = map[string]Command{}
	r.commandsList = nil
}

func (r *Registry) notFound(id string) error {
	if hints := r.suggestions(id); len(hints) > 0 {
		return fmt.Errorf("%w: %s (did you mean %s?)", ErrCommandNotFound, id, strings.Join(hints, ", "))
	}
	return fmt.Errorf("%w: %s", ErrCommandNotFound, id)
}

// suggestions returns the registered ids closest to id, at most three.
func (r *Registry) suggestions(id string) []string {
	type candidate struct {
		id   string
		dist int
	}
	var candidates []candidate
	for _, cmd := range r.commandsList {
		dist := levenshtein.ComputeDistance(strings.ToLower(id), strings.ToLower(cmd.ID()))
		if dist <= maxHintDistance {
			candidates = append(candidates, candidate{id: cmd.ID(), dist: dist})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist == candidates[j].dist {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].dist < candidates[j].dist
	})
	limit := min(3, len(candidates))
	result := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		result = append(result, c.id)
	}
	return result
}
