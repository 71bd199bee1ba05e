package bot

const welcomeText = "🎉 Welcome to TG VIP RECEIVER 🎉\n\n" +
	"📊 We're glad you're here! Please send your phone number starting with the country code.\n" +
	"Example: +20xxxxxxxxxx"

const helpText = "📖 How it works\n\n" +
	"1. Send a phone number starting with its country code, e.g. +20xxxxxxxxxx\n" +
	"2. Enter the login code you receive on that number\n" +
	"3. If the account has a 2FA password, enter it when asked\n" +
	"4. After the claim window passes and the account checks out, the reward is added to your balance\n\n" +
	"Commands:\n" +
	"/account - your balance and stats\n" +
	"/cancel - cancel a running verification\n" +
	"/withdraw - request a withdrawal\n" +
	"/withdrawhistory - your withdrawal requests"
