package dialogue

const (
	msgGreeting      = "Hello, you've reached ServiceSwarm HVAC repair. How can I help you today?"
	msgAskRequest    = "Please briefly state your repair request, including preferred date and time if you know them."
	msgRecordRequest = "After the beep, please describe your repair request, including preferred date and time if you know them. Press pound when you are finished."
	msgAskDate       = "Sure, what date would you like to schedule your service?"
	msgAskTime       = "Great, what time on %s works best for you?"
	msgAskTimeAgain  = "Thanks, what time on %s would you like your HVAC service?"

	msgRepromptRequest = "Sorry, I didn't catch that."
	msgRepromptDate    = "Sorry, I didn't catch the date."
	msgRepromptTime    = "Sorry, I didn't catch the time."
	msgSayDate         = "Please say the date for your appointment."
	msgSayTime         = "Please say the time for your appointment."

	msgBooked    = "Fantastic! I've booked your service for %s at %s. We'll send confirmation via text shortly. Goodbye."
	msgScheduled = "All set! Your HVAC service is scheduled for %s at %s. Thank you! Goodbye."
	msgFollowUp  = "Got it. Our team will review your request and follow up shortly. Goodbye."
	msgHandoff   = "I'm having trouble understanding. A member of our team will call you back shortly to finish your booking. Goodbye."
	msgApology   = "We're sorry, we couldn't process your call right now. Please call back later. Goodbye."
	msgOnline    = "ServiceSwarm is online and ready to handle calls."
)
