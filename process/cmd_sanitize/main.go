package main

import "ocrtext/process/sanitize"

func main() {
	sanitize.Run()
}
