package configdef

import (
	"errors"
	"fmt"

	validate "gopkg.in/dealancer/validate.v2"
)

type Keying struct {
	// tolerance ceiling is ceil(sqrt(3*255^2)), the largest possible
	// Euclidean RGB distance; a pointer so that an explicit zero
	// (exact-match keying) is distinguishable from an absent field
	Tolerance       *uint32 `json:"tolerance" validate:"> lte=442"`
	MatchMode       string  `json:"match_mode" validate:"one_of=background,fixed-color"`
	KeyColor        []uint8 `json:"key_color"`
	Substitution    string  `json:"substitution" validate:"one_of=transparent,fixed-color"`
	SubstituteColor []uint8 `json:"substitute_color"`
	Workers         int     `json:"workers" validate:"gte=0 & lte=256"`
}

type Values struct {
	Debug          bool   `json:"debug"`
	Secret         string `json:"secret"`
	BindAddress    string `json:"bind_address" validate:"empty=false"`
	RPCBindAddress string `json:"rpc_bind_address"`
	Keying         Keying `json:"keying"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if err := validColor(v.Keying.KeyColor, "key_color"); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if err := validColor(v.Keying.SubstituteColor, "substitute_color"); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if v.Keying.MatchMode == "fixed-color" && len(v.Keying.KeyColor) == 0 {
		return fmt.Errorf(validationErrorHeader, errors.New("fixed-color match mode requires key_color"))
	}
	if v.Keying.Substitution == "fixed-color" && len(v.Keying.SubstituteColor) == 0 {
		return fmt.Errorf(validationErrorHeader, errors.New("fixed-color substitution requires substitute_color"))
	}
	return nil
}

// colours are optional but when present must be a full RGBA quad
func validColor(c []uint8, field string) error {
	if len(c) != 0 && len(c) != 4 {
		return fmt.Errorf("%s must hold exactly 4 values (RGBA), got %d", field, len(c))
	}
	return nil
}
