package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/exposure/internal/exposure"
	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/mode"
)

//go:embed schema.cue
var schemaSrc string

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Element is one configured element, ready to build a tracker from.
type Element struct {
	// Name is the element label in the CUE source.
	Name string `json:"name"`

	// Target defaults to Name.
	Target exposure.Target `json:"target"`

	// ModeNames holds the modes exactly as written.
	ModeNames []string `json:"modes"`

	Config exposure.Config `json:"-"`
	Plan   mode.Plan       `json:"plan"`

	Pos token.Pos `json:"-"`
}

// Result contains the elements loaded from a directory or source.
type Result struct {
	Elements  []Element
	CUEValue  cue.Value
	FileCount int
}

// Lookup returns the element called name.
func (r *Result) Lookup(name string) (Element, bool) {
	for _, e := range r.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// LoadDir loads every element from the CUE package in dir.
func LoadDir(dir string, lm LoadMode) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(ErrCodeLoadFailed, "", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, "", err)}
	}

	res, errs := build(ctx, value, lm)
	if res != nil {
		res.FileCount = len(cueFiles)
	}
	return res, errs
}

// LoadSource loads elements from a single CUE source. filename is used only
// for positions in error messages.
func LoadSource(filename, src string, lm LoadMode) (*Result, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, "", err)}
	}

	res, errs := build(ctx, value, lm)
	if res != nil {
		res.FileCount = 1
	}
	return res, errs
}

// build unifies value with the schema and compiles every element.
func build(ctx *cue.Context, value cue.Value, lm LoadMode) (*Result, []error) {
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, "", err)}
	}

	value = value.Unify(schema)
	result := &Result{CUEValue: value}

	elements := value.LookupPath(cue.ParsePath("element"))
	if !elements.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoElements, Message: "no element blocks found"}}
	}

	iter, err := elements.Fields()
	if err != nil {
		return result, []error{formatCUEError(ErrCodeBuildFailed, "", err)}
	}

	var errs []error
	for iter.Next() {
		name := iter.Label()
		elem, elemErrs := compileElement(name, iter.Value())
		if elem != nil {
			result.Elements = append(result.Elements, *elem)
		}
		errs = append(errs, elemErrs...)
		if len(errs) > 0 && lm == LoadModeFailFast {
			break
		}
	}

	sort.Slice(result.Elements, func(i, j int) bool {
		return result.Elements[i].Name < result.Elements[j].Name
	})

	if len(result.Elements) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoElements, Message: "no element blocks found"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// compileElement converts one unified element value. A non-nil element may
// come back alongside errors: unknown modes are reported but the element is
// still usable, matching how a tracker treats them.
func compileElement(name string, v cue.Value) (*Element, []error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, name, err)}
	}

	elem := &Element{Name: name, Target: exposure.Target(name), Pos: v.Pos()}

	if t := v.LookupPath(cue.ParsePath("target")); t.Exists() {
		s, err := t.String()
		if err != nil {
			return nil, []error{fieldError(ErrCodeBuildFailed, name, "target", t, err)}
		}
		elem.Target = exposure.Target(s)
	}

	var errs []error

	modesVal := defaultOf(v.LookupPath(cue.ParsePath("modes")))
	list, err := modesVal.List()
	if err != nil {
		return nil, []error{fieldError(ErrCodeInvalidMode, name, "modes", modesVal, err)}
	}
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, []error{fieldError(ErrCodeInvalidMode, name, "modes", list.Value(), err)}
		}
		elem.ModeNames = append(elem.ModeNames, s)
	}
	modes, parseErrs := mode.ParseAll(elem.ModeNames)
	for _, pe := range parseErrs {
		errs = append(errs, &LoadError{
			Code:    ErrCodeInvalidMode,
			Element: name,
			Field:   "modes",
			Message: pe.Error(),
			Pos:     modesVal.Pos(),
		})
	}

	enabledVal := defaultOf(v.LookupPath(cue.ParsePath("can_dig_send")))
	enabled, err := enabledVal.Bool()
	if err != nil {
		return nil, append(errs, fieldError(ErrCodeBuildFailed, name, "can_dig_send", enabledVal, err))
	}

	payload, err := compilePayload(name, v.LookupPath(cue.ParsePath("payload")))
	if err != nil {
		return nil, append(errs, err)
	}

	observer, err := compileObserver(name, v.LookupPath(cue.ParsePath("observer")))
	if err != nil {
		return nil, append(errs, err)
	}

	elem.Config = exposure.Config{
		Modes:           modes,
		Payload:         payload,
		DispatchEnabled: enabled,
		Observer:        &observer,
	}
	elem.Plan = mode.Resolve(modes)
	return elem, errs
}

func compilePayload(name string, v cue.Value) (ir.Payload, error) {
	var p ir.Payload

	if evt := v.LookupPath(cue.ParsePath("evt")); evt.Exists() {
		val, err := toIR(name, "payload.evt", evt)
		if err != nil {
			return p, err
		}
		p.Evt = val
	}

	var err error
	p.EvtParams, err = toObject(name, "payload.evt_params", v.LookupPath(cue.ParsePath("evt_params")))
	if err != nil {
		return p, err
	}
	p.ActionParams, err = toObject(name, "payload.action_params", v.LookupPath(cue.ParsePath("action_params")))
	if err != nil {
		return p, err
	}

	if err := p.Validate(); err != nil {
		return p, &LoadError{Code: ErrCodeInvalidPayload, Element: name, Field: "payload", Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

func compileObserver(name string, v cue.Value) (exposure.ObserverOptions, error) {
	opts := exposure.DefaultObserverOptions()

	th := defaultOf(v.LookupPath(cue.ParsePath("threshold")))
	f, err := th.Float64()
	if err != nil {
		return opts, fieldError(ErrCodeInvalidOptions, name, "observer.threshold", th, err)
	}
	opts.Threshold = f

	rm := defaultOf(v.LookupPath(cue.ParsePath("root_margin")))
	s, err := rm.String()
	if err != nil {
		return opts, fieldError(ErrCodeInvalidOptions, name, "observer.root_margin", rm, err)
	}
	opts.RootMargin = s

	if err := opts.Validate(); err != nil {
		return opts, fieldError(ErrCodeInvalidOptions, name, "observer", v, err)
	}
	return opts, nil
}

func toObject(name, field string, v cue.Value) (ir.IRObject, error) {
	if !v.Exists() {
		return ir.IRObject{}, nil
	}
	val, err := toIR(name, field, v)
	if err != nil {
		return nil, err
	}
	obj, ok := val.(ir.IRObject)
	if !ok {
		return nil, &LoadError{Code: ErrCodeInvalidPayload, Element: name, Field: field, Message: "must be a struct", Pos: v.Pos()}
	}
	return obj, nil
}

// toIR walks a concrete CUE value into the ir value model.
func toIR(name, field string, v cue.Value) (ir.IRValue, error) {
	v = defaultOf(v)

	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, fieldError(ErrCodeBuildFailed, name, field, v, err)
		}
		return ir.IRString(s), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, fieldError(ErrCodeInvalidType, name, field, v, err)
		}
		return ir.IRInt(n), nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fieldError(ErrCodeBuildFailed, name, field, v, err)
		}
		return ir.IRBool(b), nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, fieldError(ErrCodeBuildFailed, name, field, v, err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIR(name, fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, fieldError(ErrCodeBuildFailed, name, field, v, err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			key := iter.Label()
			elem, err := toIR(name, field+"."+key, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil

	case cue.FloatKind:
		return nil, &LoadError{Code: ErrCodeInvalidType, Element: name, Field: field, Message: "floats are forbidden in payloads", Pos: v.Pos()}

	case cue.NullKind:
		return nil, &LoadError{Code: ErrCodeInvalidType, Element: name, Field: field, Message: "null is forbidden in payloads", Pos: v.Pos()}
	}

	return nil, &LoadError{Code: ErrCodeBuildFailed, Element: name, Field: field, Message: "value is not concrete", Pos: v.Pos()}
}

// defaultOf resolves a default disjunction, if any.
func defaultOf(v cue.Value) cue.Value {
	if d, ok := v.Default(); ok {
		return d
	}
	return v
}

func fieldError(code, name, field string, v cue.Value, err error) *LoadError {
	le := formatCUEError(code, name, err)
	le.Field = field
	if !le.Pos.IsValid() {
		le.Pos = v.Pos()
	}
	return le
}
