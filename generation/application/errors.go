package application

import "errors"

var errNoProviders = errors.New("no content providers configured")
