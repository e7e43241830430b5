package main

// @title           Teamwear Approvals API
// @version         1.0
// @description     Approval workflow and design board backend for the custom apparel shop.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	Execute()
}
