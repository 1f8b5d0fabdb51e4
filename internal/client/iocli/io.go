// Package iocli изолирует терминал от команд CLI.
package iocli

//go:generate moq -out io_mock.go . IO

// IO ввод-вывод команд CLI. Вывод пишется в Write, поэтому IO подходит для flag.FlagSet и tabwriter.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	Write(p []byte) (n int, err error)

	// ReadInput читает строку без начальных и конечных пробелов
	ReadInput(prompt string) (string, error)
	// ReadPassword читает пароль без эха, если ввод идет с терминала
	ReadPassword(prompt string) (string, error)
	// Confirm задает вопрос yes/no. Любой ответ кроме y или yes считается отказом.
	Confirm(prompt string) (bool, error)
}
