package interp

import (
	"fmt"

	"kestrel/internal/intrinsic"
	"kestrel/internal/namespace"
	"kestrel/internal/value"
)

func (rt *Runtime) registerIntrinsics() error {
	return rt.spaces.Global().AddFunctions([]namespace.FunctionDef{
		{Name: "import", Fn: rt.intrinsicImport},
		{Name: "set_import_module_path", Fn: rt.intrinsicSetPath},
		{Name: "get_import_module_path", Fn: rt.intrinsicGetPath},
		{Name: "_apropos", Fn: rt.intrinsicApropos},
		{Name: "_get_namespaces", Fn: rt.intrinsicNamespaces},
		{Name: "__get_struct_field", Fn: rt.intrinsicGetField},
		{Name: "__set_struct_field", Fn: rt.intrinsicSetField},
	})
}

// import(module [, namespace])
func (rt *Runtime) intrinsicImport(args []value.Value) (value.Value, error) {
	if err := checkArity("import", args, 1, 2); err != nil {
		return value.Null, err
	}
	module, err := argString("import", args, 0)
	if err != nil {
		return value.Null, err
	}
	var ns string
	if len(args) == 2 {
		if ns, err = argString("import", args, 1); err != nil {
			return value.Null, err
		}
	}
	return value.Null, rt.Import(rt.ctx, module, ns)
}

func (rt *Runtime) intrinsicSetPath(args []value.Value) (value.Value, error) {
	if err := checkArity("set_import_module_path", args, 1, 1); err != nil {
		return value.Null, err
	}
	path, err := argString("set_import_module_path", args, 0)
	if err != nil {
		return value.Null, err
	}
	rt.loader.SetSearchPath(path)
	return value.Null, nil
}

func (rt *Runtime) intrinsicGetPath(args []value.Value) (value.Value, error) {
	if err := checkArity("get_import_module_path", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.String(rt.loader.SearchPath()), nil
}

// _apropos(namespace, pattern, mask). mask is an integer of symbol kind bits
// or a comma-separated list of kind groups.
func (rt *Runtime) intrinsicApropos(args []value.Value) (value.Value, error) {
	if err := checkArity("_apropos", args, 3, 3); err != nil {
		return value.Null, err
	}
	ns, err := argString("_apropos", args, 0)
	if err != nil {
		return value.Null, err
	}
	pattern, err := argString("_apropos", args, 1)
	if err != nil {
		return value.Null, err
	}
	mask, err := maskArg(args[2])
	if err != nil {
		return value.Null, err
	}
	found, err := rt.spaces.Apropos(ns, pattern, mask)
	if err != nil {
		return value.Null, err
	}
	return value.Strings(found), nil
}

func maskArg(v value.Value) (namespace.Mask, error) {
	switch v.Kind() {
	case value.KInt:
		n, _ := v.AsInt()
		if n <= 0 {
			return namespace.MaskAll, nil
		}
		if n > int64(namespace.MaskAll) || namespace.Mask(n)&^namespace.MaskAll != 0 {
			return 0, fmt.Errorf("%w: _apropos mask %#x has bits outside %#x", ErrArgs, n, namespace.MaskAll)
		}
		return namespace.Mask(n), nil
	case value.KString:
		s, _ := v.AsString()
		return namespace.ParseMask(s)
	default:
		return 0, fmt.Errorf("%w: _apropos mask must be an integer or string, got %s", ErrArgs, v.Kind())
	}
}

func (rt *Runtime) intrinsicNamespaces(args []value.Value) (value.Value, error) {
	if err := checkArity("_get_namespaces", args, 0, 0); err != nil {
		return value.Null, err
	}
	return value.Strings(rt.spaces.PublicNames()), nil
}

func (rt *Runtime) structArgs(fn string, args []value.Value) (*intrinsic.Instance, string, error) {
	name, err := argString(fn, args, 0)
	if err != nil {
		return nil, "", err
	}
	field, err := argString(fn, args, 1)
	if err != nil {
		return nil, "", err
	}
	sym, err := rt.Resolve(name)
	if err != nil {
		return nil, "", err
	}
	inst, ok := sym.Value.(*intrinsic.Instance)
	if sym.Kind != namespace.KindIntrinsicStruct || !ok {
		return nil, "", fmt.Errorf("%w: %s is a %s, not an intrinsic struct", ErrArgs, name, sym.Kind)
	}
	return inst, field, nil
}

// __get_struct_field(name, field); an empty field observes the whole struct.
func (rt *Runtime) intrinsicGetField(args []value.Value) (value.Value, error) {
	if err := checkArity("__get_struct_field", args, 2, 2); err != nil {
		return value.Null, err
	}
	inst, field, err := rt.structArgs("__get_struct_field", args)
	if err != nil {
		return value.Null, err
	}
	if field == "" {
		return rt.structs.Observe(inst), nil
	}
	return rt.structs.GetByName(inst, field)
}

// __set_struct_field(name, field, value)
func (rt *Runtime) intrinsicSetField(args []value.Value) (value.Value, error) {
	if err := checkArity("__set_struct_field", args, 3, 3); err != nil {
		return value.Null, err
	}
	inst, field, err := rt.structArgs("__set_struct_field", args)
	if err != nil {
		return value.Null, err
	}
	return value.Null, rt.structs.SetByName(inst, field, args[2])
}
