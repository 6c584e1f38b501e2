// Package frame binds price tables to semantic column roles and exposes the
// indicator library on the bound target close.
package frame

import (
	"fmt"

	"StockFeatures/internal/model"
)

// Frame is a price table plus its role binding. Frames are immutable;
// rebinding returns a new frame.
type Frame struct {
	name    string
	table   model.Table
	binding Binding
	target  string
}

type options struct {
	name  string
	roles map[model.Role]string
}

// Option configures New.
type Option func(*options)

// WithRoles binds roles explicitly instead of inferring them from column
// names.
func WithRoles(roles map[model.Role]string) Option {
	return func(o *options) { o.roles = roles }
}

// WithName tags the frame, usually with its ticker.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New wraps t. Without WithRoles, roles are inferred from column names.
func New(t model.Table, opts ...Option) (*Frame, error) {
	o := options{name: "Unknown"}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Frame{name: o.name, table: t}
	if o.roles != nil {
		b, err := explicitBinding(o.roles, t.Columns())
		if err != nil {
			return nil, err
		}
		f.binding = b
	} else {
		f.binding = InferRoles(t.Columns())
	}
	return f, nil
}

// FromBars wraps the canonical table built from bars.
func FromBars(name string, bars []model.OHLCV) (*Frame, error) {
	t, err := model.TableFromBars(bars)
	if err != nil {
		return nil, err
	}
	return New(t, WithName(name))
}

// FromSeries wraps a single close series; the series becomes the target
// close whatever its name.
func FromSeries(s model.Series, opts ...Option) (*Frame, error) {
	t, err := model.TableFromSeries(s)
	if err != nil {
		return nil, err
	}
	f, err := New(t, opts...)
	if err != nil {
		return nil, err
	}
	f.target = s.Name
	return f, nil
}

// Name returns the frame tag.
func (f *Frame) Name() string { return f.name }

// Table returns the underlying table.
func (f *Frame) Table() model.Table { return f.table }

// Binding returns the role binding.
func (f *Frame) Binding() Binding { return f.binding }

// Len returns the number of rows.
func (f *Frame) Len() int { return f.table.Len() }

// Column returns the column bound to role.
func (f *Frame) Column(role model.Role) (model.Series, error) {
	col, ok := f.binding.Column(role)
	if !ok {
		return model.Series{}, fmt.Errorf("%s: no %s column: %w", f.name, role, model.ErrMissingColumn)
	}
	return f.table.Column(col)
}

// TargetCloseColumn resolves the column playing the close role: an explicit
// rebinding, else adjusted close, else close. It is empty when none exists.
func (f *Frame) TargetCloseColumn() string {
	if f.target != "" {
		return f.target
	}
	if col, ok := f.binding.Column(model.RoleAdjustedClose); ok {
		return col
	}
	if col, ok := f.binding.Column(model.RoleClose); ok {
		return col
	}
	return ""
}

// TargetClose returns the resolved close series.
func (f *Frame) TargetClose() (model.Series, error) {
	col := f.TargetCloseColumn()
	if col == "" {
		return model.Series{}, fmt.Errorf("%s: no close column: %w", f.name, model.ErrMissingColumn)
	}
	return f.table.Column(col)
}

// SetTargetClose returns a frame whose target close is s. The column is
// added, or replaced when the name exists.
func (f *Frame) SetTargetClose(s model.Series) (*Frame, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%s: target close needs a column name: %w", f.name, model.ErrInvalidParameter)
	}
	if s.Len() != f.table.Len() || len(s.Index) != f.table.Len() {
		return nil, fmt.Errorf("%s: target close has %d values over %d timestamps, frame has %d rows: %w",
			f.name, s.Len(), len(s.Index), f.table.Len(), model.ErrInvalidParameter)
	}
	for i, ts := range f.table.Index() {
		if !ts.Equal(s.Index[i]) {
			return nil, fmt.Errorf("%s: target close index differs at row %d: %w", f.name, i, model.ErrInvalidParameter)
		}
	}
	t, err := f.table.WithColumn(s.Name, s.Values)
	if err != nil {
		return nil, err
	}
	return &Frame{name: f.name, table: t, binding: f.binding, target: s.Name}, nil
}

// Select restricts the frame to the named columns. The result keeps its
// frame only when the resolved close column survives; otherwise the
// returned frame is nil and only the plain table is usable.
func (f *Frame) Select(names ...string) (*Frame, model.Table, error) {
	t, err := f.table.Select(names...)
	if err != nil {
		return nil, model.Table{}, err
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	target := f.TargetCloseColumn()
	if target == "" || !keep[target] {
		return nil, t, nil
	}
	out := &Frame{name: f.name, table: t, binding: f.binding.restrict(keep)}
	if f.target != "" {
		out.target = f.target
	}
	return out, t, nil
}
