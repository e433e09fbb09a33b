package borica

import (
	"bytes"
	"html/template"
)

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment</title></head>
<body onload="document.forms[0].submit()">
<form method="POST" action="{{.Action}}">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// RedirectForm is the self-submitting document handed to the browser.
type RedirectForm struct {
	Action string
	Fields []FormField
}

// NewRedirectForm builds the form posting req to gatewayURL.
func NewRedirectForm(gatewayURL string, req *PaymentRequest) RedirectForm {
	return RedirectForm{Action: gatewayURL, Fields: req.FormFields()}
}

// Render writes the HTML document. Values are HTML-escaped by the template.
func (f RedirectForm) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := redirectTemplate.Execute(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
