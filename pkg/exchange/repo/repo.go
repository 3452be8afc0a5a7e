package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Trade() ITrade
}

type Repo struct {
	tradesDB *gorm.DB
}

func NewRepo(tradesDB *gorm.DB) IRepo {
	return &Repo{
		tradesDB: tradesDB,
	}
}

func (r *Repo) Trade() ITrade {
	return NewTradeSQLRepo(r.tradesDB)
}
