package service

import (
	"errors"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/util"
)

var errDuplicateLesson = fmt.Errorf("%w: lesson title already covered", util.ErrValidation)

// checkDuplicateTitle 标题与已学或被排除的标题比较，忽略大小写和多余空白
func checkDuplicateTitle(title string, covered ...[]string) error {
	key := model.NormalizeTitle(title)
	for _, list := range covered {
		for _, t := range list {
			if model.NormalizeTitle(t) == key {
				return fmt.Errorf("%w: %q", errDuplicateLesson, title)
			}
		}
	}
	return nil
}

func isDuplicateLesson(err error) bool {
	return errors.Is(err, errDuplicateLesson)
}
