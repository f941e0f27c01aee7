package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pages carries the user-facing copy for the five pages. Keeping it in a
// file lets deployments reword pages without a rebuild.
type Pages struct {
	Home        HomeCopy        `yaml:"home"`
	Application ApplicationCopy `yaml:"application"`
	Waiting     WaitingCopy     `yaml:"waiting"`
	Contract    ContractCopy    `yaml:"contract"`
	Rejected    RejectedCopy    `yaml:"rejected"`
}

type HomeCopy struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Button      string `yaml:"button"`
}

type ApplicationCopy struct {
	Title          string `yaml:"title"`
	PassportLabel  string `yaml:"passport_label"`
	PassportHint   string `yaml:"passport_hint"`
	SNILSLabel     string `yaml:"snils_label"`
	SNILSHint      string `yaml:"snils_hint"`
	Submit         string `yaml:"submit"`
	InvalidField   string `yaml:"invalid_field"`
	GenericFailure string `yaml:"generic_failure"`
}

type WaitingCopy struct {
	Title          string `yaml:"title"`
	Body           string `yaml:"body"`
	StatusLabel    string `yaml:"status_label"`
	StatusInReview string `yaml:"status_in_review"`
}

type ContractCopy struct {
	Title         string `yaml:"title"`
	Download      string `yaml:"download"`
	Confirm       string `yaml:"confirm"`
	Confirmed     string `yaml:"confirmed"`
	ConfirmedNote string `yaml:"confirmed_note"`
	ConfirmError  string `yaml:"confirm_error"`
}

type RejectedCopy struct {
	Title   string `yaml:"title"`
	Body    string `yaml:"body"`
	Contact string `yaml:"contact"`
}

// LoadPages reads page copy from a YAML file. Fields missing from the file
// keep their defaults.
func LoadPages(path string) (Pages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pages{}, fmt.Errorf("failed to read pages config: %w", err)
	}

	pages := DefaultPages()
	if err := yaml.Unmarshal(data, &pages); err != nil {
		return Pages{}, fmt.Errorf("failed to parse pages config: %w", err)
	}
	return pages, nil
}

// LoadPagesOrDefault loads page copy or returns the built-in defaults when
// the file is absent or unreadable.
func LoadPagesOrDefault(path string) Pages {
	pages, err := LoadPages(path)
	if err != nil {
		return DefaultPages()
	}
	return pages
}

// DefaultPages returns the built-in page copy.
func DefaultPages() Pages {
	return Pages{
		Home: HomeCopy{
			Title:       "Добро пожаловать!",
			Description: "Для продолжения необходимо заполнить анкету. Нажмите кнопку ниже, чтобы начать.",
			Button:      "Заполнить анкету",
		},
		Application: ApplicationCopy{
			Title:          "Заполнение анкеты",
			PassportLabel:  "Номер паспорта",
			PassportHint:   "1234 567890",
			SNILSLabel:     "Номер СНИЛС",
			SNILSHint:      "123-456-789 01",
			Submit:         "Отправить",
			InvalidField:   "Поле должно содержать только цифры, пробелы и дефисы",
			GenericFailure: "Ошибка при отправке анкеты",
		},
		Waiting: WaitingCopy{
			Title:          "Идет проверка анкеты",
			Body:           "Пожалуйста, подождите. Мы проверяем ваши данные.",
			StatusLabel:    "Статус",
			StatusInReview: "В процессе проверки",
		},
		Contract: ContractCopy{
			Title:         "Договор",
			Download:      "Скачать договор",
			Confirm:       "Одобряю",
			Confirmed:     "Договор подтвержден",
			ConfirmedNote: "Ожидайте звонка от владельца жилого помещения.",
			ConfirmError:  "Ошибка при подтверждении договора",
		},
		Rejected: RejectedCopy{
			Title:   "Анкета отклонена",
			Body:    "К сожалению, ваша анкета была отклонена.",
			Contact: "По вопросам обращайтесь в поддержку.",
		},
	}
}
