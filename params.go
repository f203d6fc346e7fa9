package aura

import "sort"

// ValidateParams checks params against the server action's parameter
// definitions. Names that are not declared and required parameters that
// are absent are reported together in an *InvalidParameterError.
//
// Client actions accept arbitrary params and always validate.
func ValidateParams(def *ActionDef, params map[string]any) error {
	if !def.IsServerAction() {
		return nil
	}
	return validateParams(def.descriptor, def.paramDefs, params)
}

func validateParams(descriptor string, defs map[string]ParamDef, params map[string]any) error {
	var unknown, missing []string
	for name := range params {
		if _, ok := defs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	for name, p := range defs {
		if !p.Required {
			continue
		}
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(unknown) == 0 && len(missing) == 0 {
		return nil
	}

	sort.Strings(unknown)
	sort.Strings(missing)
	return &InvalidParameterError{
		Descriptor: descriptor,
		Unknown:    unknown,
		Missing:    missing,
	}
}
