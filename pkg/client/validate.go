// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package client

import (
	"encoding/json"
	"fmt"

	"awsipranges/pkg/model"
)

// validateJSON checks the body parses as some JSON value. Schema validation
// happens later in the manifest decoder.
func validateJSON(body []byte) ([]byte, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not JSON", model.ErrInvalidManifest)
	}
	return body, nil
}
