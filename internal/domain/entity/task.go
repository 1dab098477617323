package entity

import "fmt"

// Task задача распознавания
type Task string

const (
	TaskClassify Task = "classify" // Класс изображения
	TaskTag      Task = "tag"      // Класс изображения без имени модели
	TaskDetect   Task = "detect"   // Рамки объектов
	TaskMask     Task = "mask"     // Рамки и маски объектов
)

// ParseTask разбирает имя задачи
func ParseTask(name string) (Task, error) {
	switch t := Task(name); t {
	case TaskClassify, TaskTag, TaskDetect, TaskMask:
		return t, nil
	default:
		return "", fmt.Errorf("unknown task %q", name)
	}
}
