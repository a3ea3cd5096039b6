package validation_test

import (
	"context"
	"errors"

	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
	"github.com/Breeze/breeze.sharp-sub000/entity"
)

// noSave is a data service failing every call.
type noSave struct{}

var errNoSave = errors.New("not implemented")

func (noSave) FetchMetadata(context.Context) ([]*load.Schema, error) { return nil, errNoSave }

func (noSave) ExecuteQuery(context.Context, *entity.Query) ([]entity.Payload, error) {
	return nil, errNoSave
}

func (noSave) SaveChanges(context.Context, *entity.Document) (*entity.SaveResult, error) {
	return nil, errNoSave
}
