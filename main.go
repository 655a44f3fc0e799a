package main

import "food-delivery-backend/cmd"

func main() {
	cmd.Execute()
}
