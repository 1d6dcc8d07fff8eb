package pagination

import (
	"context"
	"errors"
)

// Reply channel errors.
var (
	// ErrInteractionExpired is wrapped by Responders when the interaction can
	// no longer be answered (expired or already acknowledged).
	ErrInteractionExpired = errors.New("interaction expired or already acknowledged")

	// ErrReplyFailed wraps any other Responder failure.
	ErrReplyFailed = errors.New("reply failed")

	// ErrNoFilterCodec is returned by NewManager when the view's filter type
	// has no parameter mapping.
	ErrNoFilterCodec = errors.New("view filter type needs a FilterCodec")
)

// Data is one fetched page.
type Data[T any] struct {
	Items       []T
	TotalCount  int
	CurrentPage int
	TotalPages  int
}

// TotalPages returns max(1, ceil(totalCount/pageSize)).
func TotalPages(totalCount, pageSize int) int {
	if pageSize < 1 || totalCount <= 0 {
		return 1
	}
	return (totalCount + pageSize - 1) / pageSize
}

// NewData builds a Data with TotalPages derived from totalCount.
func NewData[T any](items []T, totalCount, page, pageSize int) Data[T] {
	return Data[T]{
		Items:       items,
		TotalCount:  totalCount,
		CurrentPage: page,
		TotalPages:  TotalPages(totalCount, pageSize),
	}
}

// Offset returns the zero-based offset of the first item on page.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// EmbedField is a name/value pair of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rendering of a page.
type Embed struct {
	Title       string
	Description string
	Footer      string
	Color       int
	Fields      []EmbedField
}

// Control is a navigation button.
type Control struct {
	Action   Action
	Label    string
	CustomID string
	Disabled bool
}

// Reply is what a Responder sends back for one interaction.
type Reply struct {
	// Content is used for plain text replies such as failures.
	Content  string
	Embed    *Embed
	Controls []Control

	// Ephemeral replies are only visible to the invoking user.
	Ephemeral bool

	// Update edits the message that carried the activated control.
	Update bool
}

// Responder sends the reply for one inbound interaction.
type Responder interface {
	Respond(ctx context.Context, reply Reply) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, reply Reply) error

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, reply Reply) error {
	return f(ctx, reply)
}

// View supplies the data and rendering of one paginated feature.
// Fetch must be safe to call repeatedly; Render must not do I/O.
type View[T, F any] interface {
	Fetch(ctx context.Context, page, pageSize int, filter F) (Data[T], error)
	Render(data Data[T], filter F) Embed
}

// FilterCodec maps a view's filter to and from positional token parameters.
// Views whose filter type is []string do not need one.
type FilterCodec[F any] interface {
	FilterParams(filter F) ([]string, error)
	ParseFilter(params []string) (F, error)
}

// paramsCodec is the identity codec for F = []string.
type paramsCodec[F any] struct{}

func (paramsCodec[F]) FilterParams(filter F) ([]string, error) {
	params, _ := any(filter).([]string)
	return params, nil
}

func (paramsCodec[F]) ParseFilter(params []string) (F, error) {
	filter, _ := any(params).(F)
	return filter, nil
}

func filterCodecFor[T, F any](view View[T, F]) (FilterCodec[F], error) {
	if fc, ok := any(view).(FilterCodec[F]); ok {
		return fc, nil
	}
	var zero F
	if _, ok := any(zero).([]string); ok {
		return paramsCodec[F]{}, nil
	}
	return nil, ErrNoFilterCodec
}
