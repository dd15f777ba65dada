package db

import "errors"

var ErrHistoryDisabled = errors.New("prediction history is disabled")
