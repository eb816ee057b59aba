// Package validation holds the argument checks shared by metricbus
// constructors. Every check returns a *errors.ValidationError carrying the
// module and field name so that wiring mistakes read the same regardless of
// which component caught them.
//
//	if err := validation.ValidatePositive("pool", "capacity", capacity); err != nil {
//		return nil, err
//	}
package validation
