package main

import "github.com/clinicdesk/campaign-gateway/cmd"

func main() {
	cmd.Execute()
}
