/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package scriptengines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout is how long a script may run before the VM is interrupted.
const DefaultTimeout = 10 * time.Second

var ErrNoExports = errors.New("module exports nothing")

// exportDefault matches the ES module header. goja runs scripts, not modules, so the header is rewritten into its
// CommonJS equivalent before evaluation.
var exportDefault = regexp.MustCompile(`(?m)^(\s*)export\s+default\s+`)

// JavascriptEngine evaluates JavaScript in a fresh goja VM per call. The VM has no access to the file system or the
// network, and it's interrupted when the context is done or the timeout expires.
type JavascriptEngine struct {
	timeout time.Duration
}

func NewJavascriptEngine(timeout time.Duration) *JavascriptEngine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &JavascriptEngine{timeout: timeout}
}

// Evaluate runs a localization module and returns whatever it assigned to module.exports (or export default),
// round-tripped through JSON.stringify so numbers, arrays and objects come out exactly as the JSON parser would
// produce them.
func (e *JavascriptEngine) Evaluate(ctx context.Context, name string, code string) (any, error) {
	vm, cancel := e.newVM(ctx)
	defer cancel()

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", module); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}
	if _, err := vm.RunScript(name, exportDefault.ReplaceAllString(code, "${1}module.exports = ")); err != nil {
		return nil, err
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not available")
	}
	res, err := stringify(goja.Undefined(), module.Get("exports"))
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(res) {
		return nil, ErrNoExports
	}
	var out any
	if err := json.Unmarshal([]byte(res.String()), &out); err != nil {
		return nil, fmt.Errorf("cannot decode module exports: %w", err)
	}
	return out, nil
}

// RunCode runs a transformer script with `args` bound to the given data and returns the value of the last
// expression.
func (e *JavascriptEngine) RunCode(ctx context.Context, code string, args any) (any, error) {
	vm, cancel := e.newVM(ctx)
	defer cancel()
	if err := vm.Set("args", args); err != nil {
		return nil, err
	}
	res, err := vm.RunString(code)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

// newVM returns a VM that gets interrupted when ctx is done or the timeout is hit. The returned function must be
// called to release the watcher goroutine.
func (e *JavascriptEngine) newVM(ctx context.Context) (*goja.Runtime, context.CancelFunc) {
	innerCtx, cancel := context.WithTimeout(ctx, e.timeout)
	vm := goja.New()
	go func() {
		<-innerCtx.Done()
		if errors.Is(innerCtx.Err(), context.DeadlineExceeded) {
			vm.Interrupt("timeout")
			return
		}
		vm.Interrupt("canceled")
	}()
	return vm, cancel
}
