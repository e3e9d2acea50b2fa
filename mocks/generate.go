package mocks

//go:generate mockgen -destination=./mock_terminal.go -package=mocks github.com/rxtech-lab/mtsim/internal/terminal Terminal
