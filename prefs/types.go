// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Value represents the actual Go preference value.
type Value any

// types supported by the prefs system must implement the pref interface.
type pref interface {
	fmt.Stringer
	Set(value Value) error
	Get() Value
	Reset() error
}

// hooks are shared by all the atomic preference types.
type hooks struct {
	pre  func(value Value) error
	post func(value Value) error
}

// SetHookPre sets the callback function to be called just before the prefs
// value is updated. Note that even if the value hasn't changed, the callback
// will be executed. If the callback returns an error the value is not stored.
func (h *hooks) SetHookPre(f func(value Value) error) {
	h.pre = f
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated. Note that even if the value hasn't changed, the callback
// will be executed.
func (h *hooks) SetHookPost(f func(value Value) error) {
	h.post = f
}

func (h *hooks) store(nv Value, value *atomic.Value) error {
	if h.pre != nil {
		if err := h.pre(nv); err != nil {
			return err
		}
	}

	value.Store(nv)

	if h.post != nil {
		if err := h.post(nv); err != nil {
			return err
		}
	}

	return nil
}

// Bool implements a boolean type in the prefs system.
type Bool struct {
	hooks
	value atomic.Value // bool
}

func (p *Bool) String() string {
	return fmt.Sprintf("%v", p.Get())
}

// Set new value to Bool type. New value must be of type bool or string. A
// string value of anything other than "true" (case insensitive) will set the
// value to false.
func (p *Bool) Set(v Value) error {
	var nv bool
	switch v := v.(type) {
	case bool:
		nv = v
	case string:
		nv = strings.ToLower(strings.TrimSpace(v)) == "true"
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Bool", v)
	}
	return p.store(nv, &p.value)
}

// Get returns the raw pref value.
func (p *Bool) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(bool)
	}
	return false
}

// Reset sets the boolean value to false.
func (p *Bool) Reset() error {
	return p.Set(false)
}

// String implements a string type in the prefs system.
type String struct {
	hooks
	value atomic.Value // string
}

func (p *String) String() string {
	if ov := p.value.Load(); ov != nil {
		return ov.(string)
	}
	return ""
}

// Set new value to String type. Values of other types are converted with the
// %v verb.
func (p *String) Set(v Value) error {
	return p.store(fmt.Sprintf("%v", v), &p.value)
}

// Get returns the raw pref value.
func (p *String) Get() Value {
	return p.String()
}

// Reset sets the string value to the empty string.
func (p *String) Reset() error {
	return p.Set("")
}

// Int implements an integer type in the prefs system.
type Int struct {
	hooks
	value atomic.Value // int
}

func (p *Int) String() string {
	return fmt.Sprintf("%d", p.Get())
}

// Set new value to Int type. New value can be an int or string.
func (p *Int) Set(v Value) error {
	var nv int
	switch v := v.(type) {
	case int:
		nv = v
	case int32:
		nv = int(v)
	case int64:
		nv = int(v)
	case string:
		var err error
		nv, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %T to prefs.Int: %w", v, err)
		}
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Int", v)
	}
	return p.store(nv, &p.value)
}

// Get returns the raw pref value.
func (p *Int) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(int)
	}
	return 0
}

// Reset sets the int value to zero.
func (p *Int) Reset() error {
	return p.Set(0)
}

// Float implements a floating-point type in the prefs system.
type Float struct {
	hooks
	value atomic.Value // float64
}

func (p *Float) String() string {
	return fmt.Sprintf("%.3f", p.Get())
}

// Set new value to Float type. New value can be a float, an int or string.
func (p *Float) Set(v Value) error {
	var nv float64
	switch v := v.(type) {
	case float64:
		nv = v
	case float32:
		nv = float64(v)
	case int:
		nv = float64(v)
	case string:
		var err error
		nv, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %T to prefs.Float: %w", v, err)
		}
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Float", v)
	}
	return p.store(nv, &p.value)
}

// Get returns the raw pref value.
func (p *Float) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(float64)
	}
	return 0.0
}

// Reset sets the float value to zero.
func (p *Float) Reset() error {
	return p.Set(0.0)
}

// Duration implements a time.Duration type in the prefs system. On disk the
// value is stored in the format used by time.ParseDuration().
type Duration struct {
	hooks
	value atomic.Value // time.Duration
}

func (p *Duration) String() string {
	return p.Get().(time.Duration).String()
}

// Set new value to Duration type. New value can be a time.Duration or a string
// accepted by time.ParseDuration().
func (p *Duration) Set(v Value) error {
	var nv time.Duration
	switch v := v.(type) {
	case time.Duration:
		nv = v
	case string:
		var err error
		nv, err = time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %T to prefs.Duration: %w", v, err)
		}
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Duration", v)
	}
	return p.store(nv, &p.value)
}

// Get returns the raw pref value.
func (p *Duration) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(time.Duration)
	}
	return time.Duration(0)
}

// Reset sets the duration to zero.
func (p *Duration) Reset() error {
	return p.Set(time.Duration(0))
}

// Generic is a general purpose prefererences type, useful for values that
// cannot be represented by a single live value. You must use the NewGeneric()
// function to initialise a new instance of Generic.
//
// The Generic prefs type does not have a way of registering a callback
// function. It is also slower than other prefs types because it must protect
// potential critical sections with a mutex.
type Generic struct {
	crit sync.Mutex
	set  func(string) error
	get  func() string
}

// NewGeneric is the preferred method of initialisation for the Generic type.
func NewGeneric(set func(string) error, get func() string) *Generic {
	return &Generic{
		set: set,
		get: get,
	}
}

func (p *Generic) String() string {
	return p.Get().(string)
}

// Set triggers the set value procedure for the generic type.
func (p *Generic) Set(v Value) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.set(fmt.Sprintf("%v", v))
}

// Get triggers the get value procedure for the generic type.
func (p *Generic) Get() Value {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.get()
}

// Reset sets the generic value to the empty string.
func (p *Generic) Reset() error {
	return p.Set("")
}
