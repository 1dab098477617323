package entity

// Classification результат классификации изображения
type Classification struct {
	Label string  `json:"label"` // имя класса
	Index int     `json:"index"` // индекс класса в таблице меток
	Score float64 `json:"score"` // уверенность в [0,1]
	Model string  `json:"model"` // имя модели
}
