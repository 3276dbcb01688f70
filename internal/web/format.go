package web

import (
	"html/template"
	"strconv"

	"billbook/internal/core"
)

func trimFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

var funcs = template.FuncMap{
	"amount":   core.FormatAmount,
	"currency": core.FormatCurrency,
}
